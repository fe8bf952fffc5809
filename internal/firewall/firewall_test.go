package firewall

import (
	"reflect"
	"testing"

	"portalgate/internal/config"
)

func TestRuleArgs(t *testing.T) {
	cases := []struct {
		name string
		rule *config.FirewallRule
		want []string
	}{
		{
			"full rule",
			&config.FirewallRule{Target: config.TargetAccept, Protocol: "tcp", Port: "80", Mask: "10.0.0.0/8"},
			[]string{"-p", "tcp", "--dport", "80", "-d", "10.0.0.0/8", "-j", "ACCEPT"},
		},
		{
			"bare block",
			&config.FirewallRule{Target: config.TargetReject, Mask: "0.0.0.0/0"},
			[]string{"-d", "0.0.0.0/0", "-j", "REJECT"},
		},
		{
			"protocol only",
			&config.FirewallRule{Target: config.TargetDrop, Protocol: "udp", Mask: "0.0.0.0/0"},
			[]string{"-p", "udp", "-d", "0.0.0.0/0", "-j", "DROP"},
		},
		{
			"log target",
			&config.FirewallRule{Target: config.TargetLog, Protocol: "icmp", Mask: "8.8.8.8/32"},
			[]string{"-p", "icmp", "-d", "8.8.8.8/32", "-j", "LOG"},
		},
		{
			"ulog target",
			&config.FirewallRule{Target: config.TargetULog, Mask: "192.168.0.0/16"},
			[]string{"-d", "192.168.0.0/16", "-j", "ULOG"},
		},
	}
	for _, c := range cases {
		if got := RuleArgs(c.rule); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("%s: RuleArgs = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestChainsCoverAllRulesets(t *testing.T) {
	got := chains()
	if len(got) != len(rulesetChains) {
		t.Fatalf("chains() returned %d entries, want %d", len(got), len(rulesetChains))
	}
	for i, rc := range rulesetChains {
		if got[i] != rc.Chain {
			t.Fatalf("chains()[%d] = %q, want %q", i, got[i], rc.Chain)
		}
	}
}
