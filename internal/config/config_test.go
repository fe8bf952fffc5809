package config

import "testing"

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()
	if cfg.Daemon != -1 {
		t.Fatalf("Daemon = %d, want -1 (unset)", cfg.Daemon)
	}
	if cfg.GatewayPort != DefaultGatewayPort || cfg.CheckInterval != DefaultCheckInterval {
		t.Fatal("defaults not applied")
	}
	if len(cfg.LogServers) != 1 || cfg.LogServers[0].Hostname != DefaultLogServer {
		t.Fatal("log server list not seeded")
	}
	if len(cfg.UpdateServers) != 1 || cfg.UpdateServers[0].Hostname != DefaultUpdateServer {
		t.Fatal("update server list not seeded")
	}
	if cfg.UpdateServers[0].UpdateScriptPathFragment != DefaultUpdateFragment {
		t.Fatal("update server missing update fragment")
	}
	if len(cfg.AuthServers) != 0 || len(cfg.PortalServers) != 0 || len(cfg.PlatformServers) != 0 {
		t.Fatal("auth/portal/platform lists must start empty")
	}
}

func TestApplyDaemonDefault(t *testing.T) {
	cfg := NewDefault()
	cfg.ApplyDaemonDefault()
	if cfg.Daemon != 1 {
		t.Fatalf("Daemon = %d, want 1", cfg.Daemon)
	}

	cfg = NewDefault()
	cfg.Daemon = 0
	cfg.ApplyDaemonDefault()
	if cfg.Daemon != 0 {
		t.Fatal("explicit Daemon=0 must survive ApplyDaemonDefault")
	}
}

func TestAuthServerAccessor(t *testing.T) {
	cfg := NewDefault()
	if cfg.AuthServer() != nil {
		t.Fatal("AuthServer() on empty list must be nil")
	}
	a := &ServerEndpoint{Hostname: "a"}
	cfg.AuthServers = []*ServerEndpoint{a}
	if cfg.AuthServer() != a {
		t.Fatal("AuthServer() must return the head")
	}
}

func TestMarkAuthServerBadRotates(t *testing.T) {
	a := &ServerEndpoint{Hostname: "a"}
	b := &ServerEndpoint{Hostname: "b"}
	c := &ServerEndpoint{Hostname: "c"}
	cfg := NewDefault()
	cfg.AuthServers = []*ServerEndpoint{a, b, c}

	cfg.MarkAuthServerBad(a)

	if got := cfg.AuthServer(); got != b {
		t.Fatalf("head = %s, want b", got.Hostname)
	}
	if len(cfg.AuthServers) != 3 {
		t.Fatalf("len = %d, want 3", len(cfg.AuthServers))
	}
	if cfg.AuthServers[0] != b || cfg.AuthServers[1] != c || cfg.AuthServers[2] != a {
		t.Fatalf("order = %s %s %s, want b c a",
			cfg.AuthServers[0].Hostname, cfg.AuthServers[1].Hostname, cfg.AuthServers[2].Hostname)
	}
}

func TestMarkAuthServerBadNonHeadNoOp(t *testing.T) {
	a := &ServerEndpoint{Hostname: "a"}
	b := &ServerEndpoint{Hostname: "b"}
	cfg := NewDefault()
	cfg.AuthServers = []*ServerEndpoint{a, b}

	cfg.MarkAuthServerBad(b)

	if cfg.AuthServers[0] != a || cfg.AuthServers[1] != b {
		t.Fatal("marking a non-head entry must not change the list")
	}
}

func TestMarkAuthServerBadSingleEntryNoOp(t *testing.T) {
	a := &ServerEndpoint{Hostname: "a"}
	cfg := NewDefault()
	cfg.AuthServers = []*ServerEndpoint{a}

	cfg.MarkAuthServerBad(a)

	if len(cfg.AuthServers) != 1 || cfg.AuthServers[0] != a {
		t.Fatal("sole auth server must never be demoted")
	}
}

func TestMarkAuthServerBadFullCycle(t *testing.T) {
	a := &ServerEndpoint{Hostname: "a"}
	b := &ServerEndpoint{Hostname: "b"}
	cfg := NewDefault()
	cfg.AuthServers = []*ServerEndpoint{a, b}

	cfg.MarkAuthServerBad(cfg.AuthServer())
	cfg.MarkAuthServerBad(cfg.AuthServer())

	if cfg.AuthServers[0] != a || cfg.AuthServers[1] != b {
		t.Fatal("two rotations over two entries must restore the original order")
	}
}

func TestFirewallTargetString(t *testing.T) {
	cases := map[FirewallTarget]string{
		TargetDrop:   "drop",
		TargetReject: "reject",
		TargetAccept: "accept",
		TargetLog:    "log",
		TargetULog:   "ulog",
	}
	for target, want := range cases {
		if got := target.String(); got != want {
			t.Fatalf("String(%d) = %q, want %q", target, got, want)
		}
	}
}
