package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"portalgate/internal/resolver"
)

// Firewall rule grammar failures. The ruleset block parser escalates all
// of them to a fatal parse error, but callers can still tell them apart
// with errors.Is.
var (
	ErrRuleTarget   = errors.New("invalid firewall rule target")
	ErrRulePort     = errors.New("invalid firewall rule port")
	ErrRuleToClause = errors.New("invalid or unexpected keyword, expecting \"to\"")
	ErrRuleMask     = errors.New("invalid firewall rule mask")
)

// ResolveFunc resolves a hostname to zero-or-one IPv4 address. It is the
// external DNS collaborator used to pre-resolve portal and platform
// server hostnames.
type ResolveFunc func(hostname string) (net.IP, error)

// Parser reads the line-oriented gateway config format. The zero value is
// usable and resolves hostnames through the system resolver; tests
// inject their own Resolve.
type Parser struct {
	Resolve ResolveFunc
}

// Load reads, parses and validates the configuration file. Any
// unrecognized directive, malformed firewall rule or missing mandatory
// parameter yields an error and no usable config.
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	cfg.ConfigFile = filename
	var p Parser
	if err := p.ParseFile(filename, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseFile parses filename into cfg without validating completeness.
func (p Parser) ParseFile(filename string, cfg *Config) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("could not open configuration file %q: %w", filename, err)
	}
	defer f.Close()
	log.Info().Str("file", filename).Msg("reading configuration file")
	return p.Parse(f, filename, cfg)
}

// Parse reads the config format from r, dispatching each directive into
// cfg. filename is used in diagnostics only.
func (p Parser) Parse(r io.Reader, filename string, cfg *Config) error {
	sc := bufio.NewScanner(r)
	linenum := 0
	for sc.Scan() {
		linenum++
		token, rest := splitLine(sc.Text())
		if token == "" {
			continue
		}
		op := parseToken(token)
		switch op {
		case opBadOption:
			return badOption(filename, linenum, token)
		case opDaemon:
			// The command line wins; only honor the file while unset.
			if cfg.Daemon == -1 {
				if v := parseBoolean(rest); v != -1 {
					cfg.Daemon = v
				}
			}
		case opDebugLevel:
			setInt(&cfg.DebugLevel, rest)
		case opExternalInterface:
			cfg.ExternalInterface = rest
		case opGatewayID:
			cfg.GatewayID = rest
		case opDeviceID:
			cfg.DeviceID = rest
		case opGatewayInterface:
			cfg.GatewayInterface = rest
		case opGatewayAddress:
			cfg.GatewayAddress = rest
		case opGatewayPort:
			setInt(&cfg.GatewayPort, rest)
		case opAuthServer:
			if err := p.parseServer(sc, filename, &linenum, cfg, ServerAuth); err != nil {
				return err
			}
		case opPortalServer:
			if err := p.parseServer(sc, filename, &linenum, cfg, ServerPortal); err != nil {
				return err
			}
		case opPlatformServer:
			if err := p.parseServer(sc, filename, &linenum, cfg, ServerPlatform); err != nil {
				return err
			}
		case opLogServer:
			// Reserved keyword; the log server list keeps its default.
		case opFirewallRuleSet:
			name, _ := splitLine(rest)
			if name == "" {
				return fmt.Errorf("%s: line %d: FirewallRuleSet requires a name", filename, linenum)
			}
			if err := parseRuleset(sc, filename, &linenum, cfg, name); err != nil {
				return err
			}
		case opTrustedMACList:
			cfg.parseTrustedMACList(rest)
		case opHTTPDMaxConn:
			setInt(&cfg.HTTPDMaxConn, rest)
		case opHTTPDName:
			cfg.HTTPDName = rest
		case opHTTPDRealm:
			cfg.HTTPDRealm = rest
		case opHTTPDUsername:
			cfg.HTTPDUsername = rest
		case opHTTPDPassword:
			cfg.HTTPDPassword = rest
		case opClientTimeout:
			setInt(&cfg.ClientTimeout, rest)
		case opCheckInterval:
			setInt(&cfg.CheckInterval, rest)
		case opAuthInterval:
			setInt(&cfg.AuthInterval, rest)
		case opSyslogFacility:
			setInt(&cfg.SyslogFacility, rest)
		case opWdctlSocket:
			cfg.WdctlSocket = rest
		case opHTMLMessageFile:
			cfg.HTMLMessageFile = rest
		case opProxyPort:
			setInt(&cfg.ProxyPort, rest)
		default:
			// Server-block directives at the top level are ignored.
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	return nil
}

// parseServer consumes a server block up to its closing '}' line and, if
// the block set a hostname, appends the endpoint to the list selected by
// kind. A block without a hostname is silently discarded.
func (p Parser) parseServer(sc *bufio.Scanner, filename string, linenum *int, cfg *Config, kind ServerKind) error {
	srv := &ServerEndpoint{
		UseSSL:                   DefaultServerSSLAvailable,
		HTTPPort:                 DefaultServerHTTPPort,
		SSLPort:                  DefaultServerSSLPort,
		Path:                     DefaultServerPath,
		LoginScriptPathFragment:  DefaultServerLoginFragment,
		PortalScriptPathFragment: DefaultServerPortalFragment,
		MsgScriptPathFragment:    DefaultServerMsgFragment,
		PingScriptPathFragment:   DefaultServerPingFragment,
		AuthScriptPathFragment:   DefaultServerAuthFragment,
	}
	var host string

	for sc.Scan() {
		*linenum++
		raw := sc.Text()
		// The closing marker ends the block before any tokenizing.
		if strings.Contains(raw, "}") {
			break
		}
		token, rest := splitLine(raw)
		if token == "" {
			continue
		}
		switch parseToken(token) {
		case opServerHostname:
			host = rest
		case opServerPath:
			srv.Path = rest
		case opServerLoginScript:
			srv.LoginScriptPathFragment = rest
		case opServerPortalScript:
			srv.PortalScriptPathFragment = rest
		case opServerMsgScript:
			srv.MsgScriptPathFragment = rest
		case opServerPingScript:
			srv.PingScriptPathFragment = rest
		case opServerAuthScript:
			srv.AuthScriptPathFragment = rest
		case opServerSSLPort:
			setInt(&srv.SSLPort, rest)
		case opServerHTTPPort:
			setInt(&srv.HTTPPort, rest)
		case opLogServerPort:
			// accepted and ignored
		case opServerSSLAvailable:
			v := parseBoolean(rest)
			if v < 0 {
				v = 0
			}
			srv.UseSSL = v == 1
		default:
			return badOption(filename, *linenum, token)
		}
	}

	if host == "" {
		return nil
	}
	srv.Hostname = host

	switch kind {
	case ServerAuth:
		cfg.AuthServers = append(cfg.AuthServers, srv)
	case ServerPortal:
		p.resolveEndpoint(srv)
		cfg.PortalServers = append(cfg.PortalServers, srv)
	case ServerPlatform:
		p.resolveEndpoint(srv)
		cfg.PlatformServers = append(cfg.PlatformServers, srv)
	}
	log.Debug().
		Str("hostname", srv.Hostname).
		Int("http_port", srv.HTTPPort).
		Bool("ssl", srv.UseSSL).
		Str("path", srv.Path).
		Msg("server added")
	return nil
}

// resolveEndpoint caches the endpoint's resolved address. Resolution
// failure is the one recoverable parse-time error: the endpoint is kept
// without a cached address.
func (p Parser) resolveEndpoint(srv *ServerEndpoint) {
	resolve := p.Resolve
	if resolve == nil {
		resolve = resolver.LookupIPv4
	}
	ip, err := resolve(srv.Hostname)
	if err != nil || ip == nil {
		log.Warn().Err(err).Str("hostname", srv.Hostname).Msg("failed to resolve server hostname")
		return
	}
	if srv.LastIP != ip.String() {
		srv.LastIP = ip.String()
	}
}

// parseRuleset consumes a FirewallRuleSet block. Every interior directive
// must be a FirewallRule; its remainder is handed to the rule mini-parser
// under the enclosing ruleset name.
func parseRuleset(sc *bufio.Scanner, filename string, linenum *int, cfg *Config, name string) error {
	log.Debug().Str("ruleset", name).Msg("adding firewall ruleset")
	for sc.Scan() {
		*linenum++
		raw := sc.Text()
		if strings.Contains(raw, "}") {
			return nil
		}
		token, rest := splitLine(raw)
		if token == "" {
			continue
		}
		if parseToken(token) != opFirewallRule {
			return badOption(filename, *linenum, token)
		}
		if err := cfg.parseFirewallRule(name, rest); err != nil {
			return fmt.Errorf("%s: line %d: %w", filename, *linenum, err)
		}
	}
	return nil
}

// parseFirewallRule parses one rule of the form
//
//	[target] [protocol] [port <port>] [to <mask>]
//
// and appends it to the named ruleset, creating the ruleset on first use.
// The whole rule is folded to lower case before parsing. A missing target
// defaults to block; protocol and the port keyword are matched by prefix,
// "to" must be exact.
func (c *Config) parseFirewallRule(ruleset, leftover string) error {
	words := strings.Fields(strings.ToLower(leftover))
	i := 0

	target := TargetReject
	if i < len(words) {
		switch words[i] {
		case "block":
			target = TargetReject
		case "drop":
			target = TargetDrop
		case "allow":
			target = TargetAccept
		case "log":
			target = TargetLog
		case "ulog":
			target = TargetULog
		default:
			return fmt.Errorf("%w: %q, expecting \"block\", \"drop\", \"allow\", \"log\" or \"ulog\"", ErrRuleTarget, words[i])
		}
		i++
	}

	var protocol string
	if i < len(words) {
		switch {
		case strings.HasPrefix(words[i], "tcp"),
			strings.HasPrefix(words[i], "udp"),
			strings.HasPrefix(words[i], "icmp"):
			protocol = words[i]
			i++
		}
	}

	var port string
	if i < len(words) && strings.HasPrefix(words[i], "port") {
		i++
		if i >= len(words) || !allDigits(words[i]) {
			return fmt.Errorf("%w: %q", ErrRulePort, strings.Join(words[i:], " "))
		}
		port = words[i]
		i++
	}

	mask := "0.0.0.0/0"
	if i < len(words) {
		if words[i] != "to" || i+1 >= len(words) {
			return fmt.Errorf("%w, got %q", ErrRuleToClause, words[i])
		}
		mask = words[i+1]
		if !validMask(mask) {
			return fmt.Errorf("%w: %q", ErrRuleMask, mask)
		}
		i += 2
	}

	rule := &FirewallRule{
		Target:   target,
		Protocol: protocol,
		Port:     port,
		Mask:     mask,
	}
	rs := c.findOrCreateRuleset(ruleset)
	rs.Rules = append(rs.Rules, rule)
	log.Debug().
		Str("ruleset", ruleset).
		Stringer("target", target).
		Str("protocol", protocol).
		Str("port", port).
		Str("mask", mask).
		Msg("firewall rule added")
	return nil
}

// validMask accepts dotted-quad masks with an optional prefix length;
// only digits, '.' and '/' may appear.
func validMask(mask string) bool {
	for i := 0; i < len(mask); i++ {
		c := mask[i]
		if (c < '0' || c > '9') && c != '.' && c != '/' {
			return false
		}
	}
	return true
}

// trustedMACMaxLen bounds a normalized MAC (6 octets, colon separated).
const trustedMACMaxLen = 17

// parseTrustedMACList splits a comma/space separated value into MAC-like
// tokens, normalizes each and inserts only unseen values. Comparison is
// byte-exact on the normalized form, so casing distinguishes entries.
func (c *Config) parseTrustedMACList(value string) {
	for _, candidate := range strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		mac := normalizeMAC(candidate)
		if mac == "" {
			continue
		}
		seen := false
		for _, existing := range c.TrustedMACs {
			if existing == mac {
				seen = true
				break
			}
		}
		if seen {
			continue
		}
		c.TrustedMACs = append(c.TrustedMACs, mac)
		log.Debug().Str("mac", mac).Msg("trusted MAC added")
	}
}

// normalizeMAC keeps the leading run of hex digits and colons, capped at
// trustedMACMaxLen characters. Case is preserved.
func normalizeMAC(token string) string {
	n := 0
	for n < len(token) && n < trustedMACMaxLen {
		c := token[n]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == ':' {
			n++
			continue
		}
		break
	}
	return token[:n]
}

// setInt parses a base-10 value into dst, leaving dst unchanged when the
// value is not numeric. Legacy configs rely on this permissiveness.
func setInt(dst *int, value string) {
	if n, err := strconv.Atoi(value); err == nil {
		*dst = n
	}
}

func badOption(filename string, linenum int, token string) error {
	return fmt.Errorf("%s: line %d: bad configuration option: %s", filename, linenum, token)
}
