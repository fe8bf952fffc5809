package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/syslog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"portalgate/constant"
	v1 "portalgate/internal/api/v1"
	"portalgate/internal/app"
	"portalgate/internal/config"
	"portalgate/internal/portal"
)

const (
	pidFileLocation = constant.RunDir + "/portalgated.pid"
	envForeground   = "PORTALGATED_FOREGROUND"
)

func getPIDPath(pid int) (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
}

func checkPIDFile() error {
	data, err := os.ReadFile(pidFileLocation)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return errors.New("invalid PID file content")
	}

	currPID, _ := getPIDPath(os.Getpid())
	filePID, _ := getPIDPath(pid)
	if path.Base(currPID) == path.Base(filePID) {
		return fmt.Errorf("process %d is already running", pid)
	}

	_ = os.Remove(pidFileLocation)
	return nil
}

func createPIDFile() error {
	pid := os.Getpid()
	return os.WriteFile(pidFileLocation, []byte(strconv.Itoa(pid)), 0644)
}

func removePIDFile() {
	_ = os.Remove(pidFileLocation)
}

// daemonize re-executes the process detached from the controlling
// terminal. The child sees envForeground and skips this path.
func daemonize() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), envForeground+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	log.Info().Int("pid", cmd.Process.Pid).Msg("daemon started")
	return nil
}

func setupLogLevel(debugLevel int) {
	switch {
	case debugLevel <= 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case debugLevel == 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case debugLevel == 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}
}

func setupSyslog(cfg *config.Config) error {
	sw, err := syslog.New(syslog.Priority(cfg.SyslogFacility)|syslog.LOG_INFO, "portalgated")
	if err != nil {
		return fmt.Errorf("failed to connect to syslog: %w", err)
	}
	log.Logger = log.Output(zerolog.SyslogLevelWriter(sw))
	return nil
}

// limitListener caps concurrent portal connections at HTTPDMaxConn.
type limitListener struct {
	net.Listener
	sem chan struct{}
}

func newLimitListener(l net.Listener, n int) net.Listener {
	return &limitListener{Listener: l, sem: make(chan struct{}, n)}
}

func (l *limitListener) Accept() (net.Conn, error) {
	l.sem <- struct{}{}
	c, err := l.Listener.Accept()
	if err != nil {
		<-l.sem
		return nil, err
	}
	return &limitConn{Conn: c, release: func() { <-l.sem }}, nil
}

type limitConn struct {
	net.Conn
	releaseOnce sync.Once
	release     func()
}

func (c *limitConn) Close() error {
	err := c.Conn.Close()
	c.releaseOnce.Do(c.release)
	return err
}

func setupControlSocket(socketPath string, apiRouter chi.Router, errChan chan error) (*http.Server, error) {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove existing UNIX socket: %w", err)
	}

	socket, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("error while serving UNIX socket: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/api", apiRouter)

	srv := &http.Server{Handler: r}

	go func() {
		if e := srv.Serve(socket); e != nil && e != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve UNIX socket: %v", e)
		}
		socket.Close()
		os.Remove(socketPath)
	}()

	return srv, nil
}

func setupPortal(core *app.App, errChan chan error) (*http.Server, error) {
	cfg := core.Config()
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.GatewayAddress, cfg.GatewayPort))
	if err != nil {
		return nil, fmt.Errorf("error while listening HTTP: %v", err)
	}
	if cfg.HTTPDMaxConn > 0 {
		listener = newLimitListener(listener, cfg.HTTPDMaxConn)
	}

	srv := &http.Server{Handler: portal.NewRouter(core)}

	go func() {
		if e := srv.Serve(listener); e != nil && e != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve HTTP: %v", e)
		}
		listener.Close()
	}()
	return srv, nil
}

func main() {
	configFile := flag.String("c", config.DefaultConfigFile, "configuration file")
	foreground := flag.Bool("f", false, "run in foreground (do not daemonize)")
	debugLevel := flag.Int("d", -1, "debug level override (0..3)")
	useSyslog := flag.Bool("s", false, "log to syslog")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("portalgated %s (%s)\n", constant.Version, constant.Commit)
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	log.Info().
		Str("version", constant.Version).
		Str("commit", constant.Commit).
		Msg("starting portalgate daemon")

	cfg := config.NewDefault()
	cfg.ConfigFile = *configFile
	var parser config.Parser
	if err := parser.ParseFile(cfg.ConfigFile, cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to read configuration")
	}
	if *debugLevel >= 0 {
		cfg.DebugLevel = *debugLevel
	}
	if *foreground {
		cfg.Daemon = 0
	}
	cfg.ApplyDaemonDefault()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	setupLogLevel(cfg.DebugLevel)
	if *useSyslog {
		cfg.LogSyslog = true
		if err := setupSyslog(cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to set up syslog")
		}
	}

	if cfg.Daemon == 1 && os.Getenv(envForeground) == "" {
		if err := daemonize(); err != nil {
			log.Fatal().Err(err).Msg("failed to daemonize")
		}
		return
	}

	if err := checkPIDFile(); err != nil {
		log.Fatal().Err(err).Msg("failed to check PID file")
	}
	if err := createPIDFile(); err != nil {
		log.Fatal().Err(err).Msg("failed to create PID file")
	}
	defer removePIDFile()

	core := app.New(cfg)
	if err := core.DiscoverGateway(); err != nil {
		log.Fatal().Err(err).Msg("failed to set up gateway interface")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appResult := make(chan error, 1)
	go func() {
		appResult <- core.Start(ctx)
	}()

	apiHandler := v1.NewHandler(core)
	apiRouter := v1.NewRouter(apiHandler)

	errChan := make(chan error, 1)
	srvPortal, err := setupPortal(core, errChan)
	if err != nil {
		log.Fatal().Err(err).Msg("setupPortal error")
	}

	srvUnix, err := setupControlSocket(cfg.WdctlSocket, apiRouter, errChan)
	if err != nil {
		log.Fatal().Err(err).Msg("setupControlSocket error")
	}

	log.Info().Msgf("control socket on %s", cfg.WdctlSocket)
	log.Info().Msgf("portal on %s:%d", cfg.GatewayAddress, cfg.GatewayPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	var once sync.Once
	shutdown := func() {
		log.Info().Msg("shutting down service")
		cancel()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := srvPortal.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("portal server shutdown error")
		}
		if err := srvUnix.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("control socket shutdown error")
		}
	}

	for {
		select {
		case err := <-appResult:
			if err != nil {
				log.Error().Err(err).Msg("gateway core failed")
			}
			once.Do(shutdown)
			log.Info().Msg("service stopped")
			return
		case err := <-errChan:
			if err != nil {
				log.Error().Err(err).Msg("server error")
			}
			once.Do(shutdown)
		case sig := <-sigChan:
			log.Info().Msgf("received signal: %v", sig)
			switch sig {
			case os.Interrupt, syscall.SIGTERM:
				once.Do(shutdown)
			case syscall.SIGHUP:
				if err := core.Reload(); err != nil {
					log.Error().Err(err).Msg("failed to reload config")
				}
			}
		}
	}
}
