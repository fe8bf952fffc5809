package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portalgate/internal/app"
	"portalgate/internal/config"
	"portalgate/pkg/portalgate-api/types"
)

func testRouter(cfg *config.Config) (http.Handler, *app.App) {
	core := app.New(cfg)
	return NewRouter(NewHandler(core)), core
}

func testConfig() *config.Config {
	cfg := config.NewDefault()
	cfg.GatewayID = "gw-test"
	cfg.GatewayInterface = "br0"
	cfg.GatewayAddress = "192.168.1.1"
	cfg.AuthServers = []*config.ServerEndpoint{
		{Hostname: "auth1.example.com"},
		{Hostname: "auth2.example.com"},
	}
	return cfg
}

func doReq(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestGetStatus(t *testing.T) {
	r, core := testRouter(testConfig())
	core.Clients().Add("10.0.0.5", "AA:BB:CC:DD:EE:FF", "tok")

	rec := doReq(t, r, http.MethodGet, "/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var res types.StatusRes
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad status body: %v", err)
	}
	if res.GatewayID != "gw-test" || res.AuthServer != "auth1.example.com" || res.ClientCount != 1 {
		t.Fatalf("status = %+v", res)
	}
}

func TestGetConfigYAML(t *testing.T) {
	r, _ := testRouter(testConfig())
	rec := doReq(t, r, http.MethodGet, "/v1/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "gateway_id: gw-test") {
		t.Fatalf("config dump missing gateway id:\n%s", body)
	}
	if strings.Contains(body, "httpd_password") {
		t.Fatal("config dump must not expose the password")
	}
}

func TestRotateAuthServer(t *testing.T) {
	cfg := testConfig()
	r, _ := testRouter(cfg)

	rec := doReq(t, r, http.MethodPost, "/v1/authservers/rotate")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var res types.RotateRes
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad rotate body: %v", err)
	}
	if res.AuthServer != "auth2.example.com" {
		t.Fatalf("AuthServer = %q, want auth2.example.com", res.AuthServer)
	}
	if cfg.AuthServer().Hostname != "auth2.example.com" {
		t.Fatal("rotation not applied to the config")
	}
}

func TestRotateAuthServerEmptyList(t *testing.T) {
	cfg := testConfig()
	cfg.AuthServers = nil
	r, _ := testRouter(cfg)

	rec := doReq(t, r, http.MethodPost, "/v1/authservers/rotate")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestGetClients(t *testing.T) {
	r, core := testRouter(testConfig())
	core.Clients().Add("10.0.0.5", "AA:BB:CC:DD:EE:FF", "tok")

	rec := doReq(t, r, http.MethodGet, "/v1/clients")
	var res []types.ClientRes
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad clients body: %v", err)
	}
	if len(res) != 1 || res[0].IP != "10.0.0.5" || res[0].MAC != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("clients = %+v", res)
	}
}

func TestDeleteClient(t *testing.T) {
	r, core := testRouter(testConfig())
	core.Clients().Add("10.0.0.5", "AA:BB:CC:DD:EE:FF", "tok")

	rec := doReq(t, r, http.MethodDelete, "/v1/clients/10.0.0.5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if core.Clients().Len() != 0 {
		t.Fatal("client not removed")
	}

	rec = doReq(t, r, http.MethodDelete, "/v1/clients/10.0.0.5")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}
