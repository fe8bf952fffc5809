// Package firewall applies the parsed gateway configuration to iptables:
// named rulesets are loaded into prefixed chains, trusted devices are
// marked in mangle, and clients are granted or revoked access as they
// authenticate.
package firewall

import (
	"fmt"

	"github.com/coreos/go-iptables/iptables"
	"github.com/rs/zerolog/log"

	"portalgate/internal/config"
)

// Well-known ruleset names and the chains they load into. Rulesets keep
// their file order; iptables evaluates the chain top-down.
var rulesetChains = []struct {
	Ruleset string
	Chain   string
}{
	{"global", "PG_Global"},
	{"validating-users", "PG_Validating"},
	{"known-users", "PG_Known"},
	{"unknown-users", "PG_Unknown"},
	{"locked-users", "PG_Locked"},
}

const (
	chainTrusted = "PG_Trusted"
	markTrusted  = "2"
)

type Firewall struct {
	ipt *iptables.IPTables
	cfg *config.Config
}

func New(cfg *config.Config) (*Firewall, error) {
	ipt, err := iptables.NewWithProtocol(iptables.ProtocolIPv4)
	if err != nil {
		return nil, fmt.Errorf("iptables init fail: %w", err)
	}
	return &Firewall{ipt: ipt, cfg: cfg}, nil
}

// Init creates the gateway chains and loads the configured rulesets and
// trusted MAC marks.
func (f *Firewall) Init() error {
	for _, rc := range rulesetChains {
		if err := f.createChain("filter", rc.Chain); err != nil {
			return err
		}
		if err := f.loadRuleset(rc.Ruleset, rc.Chain); err != nil {
			return err
		}
	}
	if err := f.createChain("mangle", chainTrusted); err != nil {
		return err
	}
	if err := f.ipt.InsertUnique("mangle", "PREROUTING", 1, "-i", f.cfg.GatewayInterface, "-j", chainTrusted); err != nil {
		return fmt.Errorf("failed to link %s: %w", chainTrusted, err)
	}
	return f.loadTrustedMACs()
}

// Destroy unlinks and removes everything Init set up. Errors are
// collected so teardown continues past missing chains.
func (f *Firewall) Destroy() {
	if err := f.ipt.DeleteIfExists("mangle", "PREROUTING", "-i", f.cfg.GatewayInterface, "-j", chainTrusted); err != nil {
		log.Warn().Err(err).Msg("failed to unlink trusted chain")
	}
	for _, chain := range append(chains(), chainTrusted) {
		table := "filter"
		if chain == chainTrusted {
			table = "mangle"
		}
		if err := f.ipt.ClearChain(table, chain); err != nil {
			log.Warn().Err(err).Str("chain", chain).Msg("failed to clear chain")
			continue
		}
		if err := f.ipt.DeleteChain(table, chain); err != nil {
			log.Warn().Err(err).Str("chain", chain).Msg("failed to delete chain")
		}
	}
}

func chains() []string {
	out := make([]string, 0, len(rulesetChains))
	for _, rc := range rulesetChains {
		out = append(out, rc.Chain)
	}
	return out
}

// createChain makes a chain, tolerating one that already exists.
func (f *Firewall) createChain(table, chain string) error {
	err := f.ipt.NewChain(table, chain)
	if err != nil {
		// If not "AlreadyExists"
		if eerr, eok := err.(*iptables.Error); !(eok && eerr.ExitStatus() == 1) {
			return fmt.Errorf("failed to create chain %s: %w", chain, err)
		}
	}
	return nil
}

// loadRuleset appends the named ruleset's rules to chain in file order.
// An undefined ruleset is skipped; the chain stays empty.
func (f *Firewall) loadRuleset(name, chain string) error {
	rules := f.cfg.Ruleset(name)
	if rules == nil {
		return nil
	}
	for _, rule := range rules {
		if err := f.ipt.AppendUnique("filter", chain, RuleArgs(rule)...); err != nil {
			return fmt.Errorf("failed to append rule to %s: %w", chain, err)
		}
	}
	log.Debug().Str("ruleset", name).Str("chain", chain).Int("rules", len(rules)).Msg("ruleset loaded")
	return nil
}

func (f *Firewall) loadTrustedMACs() error {
	for _, mac := range f.cfg.TrustedMACs {
		err := f.ipt.AppendUnique("mangle", chainTrusted,
			"-m", "mac", "--mac-source", mac, "-j", "MARK", "--set-mark", markTrusted)
		if err != nil {
			return fmt.Errorf("failed to mark trusted MAC %s: %w", mac, err)
		}
	}
	return nil
}

// AllowClient grants an authenticated client access by marking its
// traffic in mangle.
func (f *Firewall) AllowClient(ip, mac string) error {
	err := f.ipt.AppendUnique("mangle", chainTrusted,
		"-s", ip, "-m", "mac", "--mac-source", mac, "-j", "MARK", "--set-mark", markTrusted)
	if err != nil {
		return fmt.Errorf("failed to allow client %s: %w", ip, err)
	}
	log.Info().Str("ip", ip).Str("mac", mac).Msg("client allowed")
	return nil
}

// DenyClient revokes a client's access.
func (f *Firewall) DenyClient(ip, mac string) error {
	err := f.ipt.DeleteIfExists("mangle", chainTrusted,
		"-s", ip, "-m", "mac", "--mac-source", mac, "-j", "MARK", "--set-mark", markTrusted)
	if err != nil {
		return fmt.Errorf("failed to deny client %s: %w", ip, err)
	}
	log.Info().Str("ip", ip).Str("mac", mac).Msg("client denied")
	return nil
}

// RuleArgs compiles a parsed firewall rule into iptables arguments.
func RuleArgs(rule *config.FirewallRule) []string {
	var args []string
	if rule.Protocol != "" {
		args = append(args, "-p", rule.Protocol)
	}
	if rule.Port != "" {
		args = append(args, "--dport", rule.Port)
	}
	args = append(args, "-d", rule.Mask)
	return append(args, "-j", targetArg(rule.Target))
}

func targetArg(t config.FirewallTarget) string {
	switch t {
	case config.TargetAccept:
		return "ACCEPT"
	case config.TargetDrop:
		return "DROP"
	case config.TargetLog:
		return "LOG"
	case config.TargetULog:
		return "ULOG"
	}
	return "REJECT"
}
