package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"portalgate/internal/config"
)

// endpointFor points a ServerEndpoint at a local test server.
func endpointFor(t *testing.T, ts *httptest.Server) *config.ServerEndpoint {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("bad test server URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("bad test server host: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return &config.ServerEndpoint{
		Hostname:               host,
		HTTPPort:               port,
		SSLPort:                config.DefaultServerSSLPort,
		Path:                   "/",
		PingScriptPathFragment: "ping/?",
		AuthScriptPathFragment: "auth/?",
	}
}

func testApp(srv ...*config.ServerEndpoint) *App {
	cfg := config.NewDefault()
	cfg.GatewayID = "gw-test"
	cfg.AuthServers = srv
	return New(cfg)
}

func TestAuthenticateAccepted(t *testing.T) {
	var gotQuery url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte("Auth: 1"))
	}))
	defer ts.Close()

	a := testApp(endpointFor(t, ts))
	ok, err := a.Authenticate(context.Background(), "tok123", "10.0.0.5", "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if !ok {
		t.Fatal("Authenticate = false, want true")
	}
	if gotQuery.Get("token") != "tok123" || gotQuery.Get("ip") != "10.0.0.5" ||
		gotQuery.Get("mac") != "AA:BB:CC:DD:EE:FF" || gotQuery.Get("gw_id") != "gw-test" {
		t.Fatalf("auth request query = %v", gotQuery)
	}
}

func TestAuthenticateDenied(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Auth: 0"))
	}))
	defer ts.Close()

	a := testApp(endpointFor(t, ts))
	ok, err := a.Authenticate(context.Background(), "tok123", "10.0.0.5", "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if ok {
		t.Fatal("Authenticate = true, want false")
	}
}

func TestAuthenticateNoServer(t *testing.T) {
	a := testApp()
	_, err := a.Authenticate(context.Background(), "tok", "10.0.0.5", "AA:BB:CC:DD:EE:FF")
	if !errors.Is(err, ErrNoAuthServer) {
		t.Fatalf("want ErrNoAuthServer, got %v", err)
	}
}

// A transport failure demotes the current server so the next request
// hits the backup.
func TestAuthenticateTransportFailureDemotes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	dead := endpointFor(t, ts)
	backup := &config.ServerEndpoint{Hostname: "backup.example.com"}
	a := testApp(dead, backup)

	_, err := a.Authenticate(context.Background(), "tok", "10.0.0.5", "AA:BB:CC:DD:EE:FF")
	if err == nil {
		t.Fatal("Authenticate against a dead server must fail")
	}
	if got := a.Config().AuthServer(); got != backup {
		t.Fatalf("head = %v, want backup after demotion", got)
	}
}

func TestCheckAuthServerPongKeepsHead(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Pong"))
	}))
	defer ts.Close()

	head := endpointFor(t, ts)
	a := testApp(head, &config.ServerEndpoint{Hostname: "backup.example.com"})
	a.checkAuthServer(context.Background())
	if a.Config().AuthServer() != head {
		t.Fatal("healthy server must stay at the head")
	}
}

func TestCheckAuthServerNoPongDemotes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer ts.Close()

	head := endpointFor(t, ts)
	backup := &config.ServerEndpoint{Hostname: "backup.example.com"}
	a := testApp(head, backup)
	a.checkAuthServer(context.Background())
	if a.Config().AuthServer() != backup {
		t.Fatal("server answering without Pong must be demoted")
	}
}

func TestCheckAuthServerSoleEntryNeverDemoted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	dead := endpointFor(t, ts)
	a := testApp(dead)
	a.checkAuthServer(context.Background())
	if a.Config().AuthServer() != dead {
		t.Fatal("the only auth server must never be demoted")
	}
}
