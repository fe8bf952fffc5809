// Package app wires the parsed gateway configuration to the firewall,
// the client list and the auth server collaborators, and owns the daemon
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"portalgate/internal/clients"
	"portalgate/internal/config"
	"portalgate/internal/firewall"
)

var (
	ErrAlreadyRunning = errors.New("already running")
	ErrNoAuthServer   = errors.New("no auth server configured")
)

// authBodyLimit caps how much of an auth server response is read.
const authBodyLimit = 64 * 1024

type App struct {
	mu      sync.RWMutex
	cfg     *config.Config
	fw      *firewall.Firewall
	clients *clients.List

	enabled    atomic.Bool
	startedAt  time.Time
	httpClient *http.Client
}

func New(cfg *config.Config) *App {
	return &App{
		cfg:        cfg,
		clients:    clients.New(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Config returns the current configuration record.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Clients returns the connected-client list.
func (a *App) Clients() *clients.List {
	return a.clients
}

// Firewall returns the running firewall executor, or nil before Start.
func (a *App) Firewall() *firewall.Firewall {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fw
}

// StartedAt returns when the core started serving.
func (a *App) StartedAt() time.Time {
	return a.startedAt
}

// Authenticate validates a client token against the current auth server.
// A transport failure demotes the server and is returned to the caller.
func (a *App) Authenticate(ctx context.Context, token, ip, mac string) (bool, error) {
	cfg := a.Config()
	srv := cfg.AuthServer()
	if srv == nil {
		return false, ErrNoAuthServer
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.AuthURL(cfg.GatewayID, token, ip, mac), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build auth request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("hostname", srv.Hostname).Msg("auth server unreachable, demoting")
		cfg.MarkAuthServerBad(srv)
		return false, fmt.Errorf("auth server request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, authBodyLimit))
	if err != nil {
		return false, fmt.Errorf("failed to read auth response: %w", err)
	}
	return strings.Contains(string(body), "Auth: 1"), nil
}

// checkAuthServer pings the current auth server and demotes it to the
// tail of the list when it does not answer.
func (a *App) checkAuthServer(ctx context.Context) {
	cfg := a.Config()
	srv := cfg.AuthServer()
	if srv == nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.PingURL(cfg.GatewayID), nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to build ping request")
		return
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("hostname", srv.Hostname).Msg("auth server ping failed, demoting")
		cfg.MarkAuthServerBad(srv)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, authBodyLimit))
	if !strings.Contains(string(body), "Pong") {
		log.Warn().Str("hostname", srv.Hostname).Msg("auth server ping returned no Pong, demoting")
		cfg.MarkAuthServerBad(srv)
		return
	}
	log.Debug().Str("hostname", srv.Hostname).Msg("auth server ping ok")
}

// Reload re-parses the config file and swaps the configuration, then
// rebuilds the firewall chains from the new rulesets.
func (a *App) Reload() error {
	fresh, err := config.Load(a.Config().ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	fresh.Daemon = a.Config().Daemon

	a.mu.Lock()
	a.cfg = fresh
	fw := a.fw
	a.mu.Unlock()

	if fw == nil {
		return nil
	}
	fw.Destroy()
	nfw, err := firewall.New(fresh)
	if err != nil {
		return err
	}
	if err := nfw.Init(); err != nil {
		return fmt.Errorf("firewall reinit fail: %w", err)
	}
	a.mu.Lock()
	a.fw = nfw
	a.mu.Unlock()
	log.Info().Msg("configuration reloaded")
	return nil
}
