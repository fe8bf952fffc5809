package config

import (
	"net/url"
	"strings"
	"testing"
)

func testEndpoint() *ServerEndpoint {
	return &ServerEndpoint{
		Hostname:                 "auth.example.com",
		HTTPPort:                 DefaultServerHTTPPort,
		SSLPort:                  DefaultServerSSLPort,
		Path:                     DefaultServerPath,
		LoginScriptPathFragment:  DefaultServerLoginFragment,
		PortalScriptPathFragment: DefaultServerPortalFragment,
		MsgScriptPathFragment:    DefaultServerMsgFragment,
		PingScriptPathFragment:   DefaultServerPingFragment,
		AuthScriptPathFragment:   DefaultServerAuthFragment,
	}
}

func TestBaseURL(t *testing.T) {
	s := testEndpoint()
	if got := s.BaseURL(); got != "http://auth.example.com:80/portalgate/" {
		t.Fatalf("BaseURL = %q", got)
	}
	s.UseSSL = true
	if got := s.BaseURL(); got != "https://auth.example.com:443/portalgate/" {
		t.Fatalf("SSL BaseURL = %q", got)
	}
	s.SSLPort = 8443
	if got := s.BaseURL(); got != "https://auth.example.com:8443/portalgate/" {
		t.Fatalf("SSL BaseURL with custom port = %q", got)
	}
}

func queryOf(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("generated URL does not parse: %v", err)
	}
	return u.Query()
}

func TestLoginURL(t *testing.T) {
	s := testEndpoint()
	raw := s.LoginURL("192.168.1.1", 2060, "gw-1", "http://example.org/")
	if !strings.HasPrefix(raw, "http://auth.example.com:80/portalgate/login/?") {
		t.Fatalf("LoginURL = %q", raw)
	}
	q := queryOf(t, raw)
	if q.Get("gw_address") != "192.168.1.1" || q.Get("gw_port") != "2060" ||
		q.Get("gw_id") != "gw-1" || q.Get("url") != "http://example.org/" {
		t.Fatalf("query = %v", q)
	}
}

func TestPingURL(t *testing.T) {
	s := testEndpoint()
	raw := s.PingURL("gw-1")
	if !strings.HasPrefix(raw, "http://auth.example.com:80/portalgate/ping/?") {
		t.Fatalf("PingURL = %q", raw)
	}
	if queryOf(t, raw).Get("gw_id") != "gw-1" {
		t.Fatalf("PingURL query = %q", raw)
	}
}

func TestAuthURL(t *testing.T) {
	s := testEndpoint()
	raw := s.AuthURL("gw-1", "tok123", "10.0.0.5", "AA:BB:CC:DD:EE:FF")
	q := queryOf(t, raw)
	if q.Get("gw_id") != "gw-1" || q.Get("token") != "tok123" ||
		q.Get("ip") != "10.0.0.5" || q.Get("mac") != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("query = %v", q)
	}
}

// A fragment without "?" gets one inserted before the query.
func TestScriptURLSeparator(t *testing.T) {
	s := testEndpoint()
	s.MsgScriptPathFragment = "message"
	raw := s.MsgURL("denied")
	if !strings.HasPrefix(raw, "http://auth.example.com:80/portalgate/message?") {
		t.Fatalf("MsgURL = %q", raw)
	}
	if queryOf(t, raw).Get("message") != "denied" {
		t.Fatalf("MsgURL query = %q", raw)
	}
}

func TestScriptURLNoParams(t *testing.T) {
	s := testEndpoint()
	if got := s.scriptURL("portal/?", nil); got != "http://auth.example.com:80/portalgate/portal/?" {
		t.Fatalf("scriptURL = %q", got)
	}
}
