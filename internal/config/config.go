// Package config loads and validates the gateway startup configuration
// from its line-oriented config file and exposes the resulting in-memory
// model to the HTTP, firewall and authentication subsystems.
package config

import (
	"sync"

	"portalgate/constant"
)

// Defaults applied before the config file is read. Server block defaults
// are re-applied at the start of every server block, so a block only has
// to mention the fields it overrides.
const (
	DefaultConfigFile      = constant.AppConfigDir + "/portalgate.conf"
	DefaultHTMLMessageFile = constant.AppConfigDir + "/portalgate-msg.html"
	DefaultDeviceID        = "PG001"
	DefaultDebugLevel      = 1
	DefaultGatewayPort     = 2060
	DefaultHTTPDMaxConn    = 10
	DefaultHTTPDRealm      = "PortalGate"
	DefaultClientTimeout   = 5
	DefaultCheckInterval   = 60
	DefaultAuthInterval    = 30
	DefaultSyslogFacility  = 3 << 3 // LOG_DAEMON
	DefaultWdctlSocket     = constant.RunDir + "/portalgate-ctl.sock"
	DefaultInternalSocket  = constant.RunDir + "/portalgate.sock"

	DefaultServerPath           = "/portalgate/"
	DefaultServerLoginFragment  = "login/?"
	DefaultServerPortalFragment = "portal/?"
	DefaultServerMsgFragment    = "message/?"
	DefaultServerPingFragment   = "ping/?"
	DefaultServerAuthFragment   = "auth/?"
	DefaultServerHTTPPort       = 80
	DefaultServerSSLPort        = 443
	DefaultServerSSLAvailable   = false

	DefaultLogServer        = "log.portalgate.org"
	DefaultUpdateServer     = "update.portalgate.org"
	DefaultUpdateServerPath = "/"
	DefaultUpdateFragment   = "update/?"
)

// ServerKind selects the list a parsed server block is appended to.
type ServerKind int

const (
	ServerAuth ServerKind = iota + 1
	ServerPortal
	ServerPlatform
)

// ServerEndpoint describes one remote server (auth/portal/platform/log/
// update). Endpoints are owned by the list they are appended to.
type ServerEndpoint struct {
	Hostname string `yaml:"hostname"`
	// LastIP caches the resolved address for portal/platform servers.
	// Empty when resolution failed or was never attempted.
	LastIP   string `yaml:"last_ip,omitempty"`
	UseSSL   bool   `yaml:"ssl_available"`
	HTTPPort int    `yaml:"http_port"`
	SSLPort  int    `yaml:"ssl_port"`
	Path     string `yaml:"path"`

	LoginScriptPathFragment  string `yaml:"login_script_path_fragment,omitempty"`
	PortalScriptPathFragment string `yaml:"portal_script_path_fragment,omitempty"`
	MsgScriptPathFragment    string `yaml:"msg_script_path_fragment,omitempty"`
	PingScriptPathFragment   string `yaml:"ping_script_path_fragment,omitempty"`
	AuthScriptPathFragment   string `yaml:"auth_script_path_fragment,omitempty"`
	UpdateScriptPathFragment string `yaml:"update_script_path_fragment,omitempty"`
}

// FirewallTarget is the disposition a firewall rule assigns to matching
// traffic.
type FirewallTarget int

const (
	TargetDrop FirewallTarget = iota
	TargetReject
	TargetAccept
	TargetLog
	TargetULog
)

func (t FirewallTarget) String() string {
	switch t {
	case TargetDrop:
		return "drop"
	case TargetReject:
		return "reject"
	case TargetAccept:
		return "accept"
	case TargetLog:
		return "log"
	case TargetULog:
		return "ulog"
	}
	return "unknown"
}

// MarshalYAML renders the target name instead of its numeric value.
func (t FirewallTarget) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// FirewallRule is a single parsed rule. Protocol and Port may be empty;
// Mask is never empty (defaults to "0.0.0.0/0").
type FirewallRule struct {
	Target   FirewallTarget `yaml:"target"`
	Protocol string         `yaml:"protocol,omitempty"`
	Port     string         `yaml:"port,omitempty"`
	Mask     string         `yaml:"mask"`
}

// FirewallRuleSet is a named, ordered collection of rules. Rule order is
// file order and must be preserved: the firewall executor evaluates rules
// in sequence.
type FirewallRuleSet struct {
	Name  string          `yaml:"name"`
	Rules []*FirewallRule `yaml:"rules"`
}

// Config is the process-wide gateway configuration. It is built once at
// startup by the parser; after that it is shared read-only between
// workers. The only sanctioned runtime mutation is MarkAuthServerBad.
type Config struct {
	mu sync.Mutex

	ConfigFile string `yaml:"config_file"`

	// Daemon is tri-state: -1 unset, 0 no, 1 yes. The command line wins
	// over the config file.
	Daemon            int    `yaml:"daemon"`
	DebugLevel        int    `yaml:"debug_level"`
	LogSyslog         bool   `yaml:"log_syslog"`
	SyslogFacility    int    `yaml:"syslog_facility"`
	ExternalInterface string `yaml:"external_interface,omitempty"`
	GatewayID         string `yaml:"gateway_id,omitempty"`
	DeviceID          string `yaml:"device_id"`
	GatewayInterface  string `yaml:"gateway_interface,omitempty"`
	GatewayAddress    string `yaml:"gateway_address,omitempty"`
	GatewayMAC        string `yaml:"gateway_mac,omitempty"`
	GatewayPort       int    `yaml:"gateway_port"`
	HTTPDMaxConn      int    `yaml:"httpd_max_conn"`
	HTTPDName         string `yaml:"httpd_name,omitempty"`
	HTTPDRealm        string `yaml:"httpd_realm"`
	HTTPDUsername     string `yaml:"httpd_username,omitempty"`
	HTTPDPassword     string `yaml:"-"`
	ClientTimeout     int    `yaml:"client_timeout"`
	CheckInterval     int    `yaml:"check_interval"`
	AuthInterval      int    `yaml:"auth_interval"`
	WdctlSocket       string `yaml:"wdctl_socket"`
	InternalSocket    string `yaml:"internal_socket"`
	HTMLMessageFile   string `yaml:"html_message_file"`
	ProxyPort         int    `yaml:"proxy_port"`

	AuthServers     []*ServerEndpoint `yaml:"auth_servers"`
	PortalServers   []*ServerEndpoint `yaml:"portal_servers,omitempty"`
	PlatformServers []*ServerEndpoint `yaml:"platform_servers,omitempty"`
	LogServers      []*ServerEndpoint `yaml:"log_servers,omitempty"`
	UpdateServers   []*ServerEndpoint `yaml:"update_servers,omitempty"`

	Rulesets    []*FirewallRuleSet `yaml:"firewall_rulesets,omitempty"`
	TrustedMACs []string           `yaml:"trusted_mac_list,omitempty"`
}

// NewDefault returns a config populated with the built-in defaults. The
// log and update server lists are seeded with their default entries; the
// parser never grows the log list and only the initializer grows the
// update list.
func NewDefault() *Config {
	c := &Config{
		ConfigFile:      DefaultConfigFile,
		Daemon:          -1,
		DebugLevel:      DefaultDebugLevel,
		SyslogFacility:  DefaultSyslogFacility,
		DeviceID:        DefaultDeviceID,
		GatewayPort:     DefaultGatewayPort,
		HTTPDMaxConn:    DefaultHTTPDMaxConn,
		HTTPDRealm:      DefaultHTTPDRealm,
		ClientTimeout:   DefaultClientTimeout,
		CheckInterval:   DefaultCheckInterval,
		AuthInterval:    DefaultAuthInterval,
		WdctlSocket:     DefaultWdctlSocket,
		InternalSocket:  DefaultInternalSocket,
		HTMLMessageFile: DefaultHTMLMessageFile,
	}
	c.LogServers = []*ServerEndpoint{{
		Hostname:                 DefaultLogServer,
		UseSSL:                   DefaultServerSSLAvailable,
		HTTPPort:                 DefaultServerHTTPPort,
		SSLPort:                  DefaultServerSSLPort,
		Path:                     DefaultServerPath,
		LoginScriptPathFragment:  DefaultServerLoginFragment,
		PortalScriptPathFragment: DefaultServerPortalFragment,
		MsgScriptPathFragment:    DefaultServerMsgFragment,
		PingScriptPathFragment:   DefaultServerPingFragment,
		AuthScriptPathFragment:   DefaultServerAuthFragment,
	}}
	c.initUpdateServer()
	return c
}

func (c *Config) initUpdateServer() {
	if len(c.UpdateServers) > 0 {
		return
	}
	c.UpdateServers = []*ServerEndpoint{{
		Hostname:                 DefaultUpdateServer,
		UseSSL:                   DefaultServerSSLAvailable,
		HTTPPort:                 DefaultServerHTTPPort,
		SSLPort:                  DefaultServerSSLPort,
		Path:                     DefaultUpdateServerPath,
		LoginScriptPathFragment:  DefaultServerLoginFragment,
		PortalScriptPathFragment: DefaultServerPortalFragment,
		MsgScriptPathFragment:    DefaultServerMsgFragment,
		PingScriptPathFragment:   DefaultServerPingFragment,
		AuthScriptPathFragment:   DefaultServerAuthFragment,
		UpdateScriptPathFragment: DefaultUpdateFragment,
	}}
}

// ApplyDaemonDefault resolves the daemon tri-state when neither the
// command line nor the config file set it.
func (c *Config) ApplyDaemonDefault() {
	if c.Daemon == -1 {
		c.Daemon = 1
	}
}

// AuthServer returns the current (first) auth server, or nil. Readers may
// observe either the pre- or post-rotation head, never a torn list.
func (c *Config) AuthServer() *ServerEndpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.AuthServers) == 0 {
		return nil
	}
	return c.AuthServers[0]
}

// PortalServer returns the current (first) portal server, or nil.
func (c *Config) PortalServer() *ServerEndpoint {
	if len(c.PortalServers) == 0 {
		return nil
	}
	return c.PortalServers[0]
}

// PlatformServer returns the current (first) platform server, or nil.
func (c *Config) PlatformServer() *ServerEndpoint {
	if len(c.PlatformServers) == 0 {
		return nil
	}
	return c.PlatformServers[0]
}

// LogServer returns the current (first) log server, or nil.
func (c *Config) LogServer() *ServerEndpoint {
	if len(c.LogServers) == 0 {
		return nil
	}
	return c.LogServers[0]
}

// UpdateServer returns the current (first) update server, or nil.
func (c *Config) UpdateServer() *ServerEndpoint {
	if len(c.UpdateServers) == 0 {
		return nil
	}
	return c.UpdateServers[0]
}

// MarkAuthServerBad demotes bad to the tail of the auth server list, so
// the next entry becomes current. It is a no-op unless bad is the current
// head and at least one other server exists. The relative order of the
// remaining entries is preserved.
func (c *Config) MarkAuthServerBad(bad *ServerEndpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.AuthServers) < 2 || c.AuthServers[0] != bad {
		return
	}
	rotated := make([]*ServerEndpoint, 0, len(c.AuthServers))
	rotated = append(rotated, c.AuthServers[1:]...)
	rotated = append(rotated, bad)
	c.AuthServers = rotated
}

// Ruleset returns the rules of the named ruleset, or nil if the ruleset
// was never defined.
func (c *Config) Ruleset(name string) []*FirewallRule {
	for _, rs := range c.Rulesets {
		if rs.Name == name {
			return rs.Rules
		}
	}
	return nil
}

func (c *Config) findOrCreateRuleset(name string) *FirewallRuleSet {
	for _, rs := range c.Rulesets {
		if rs.Name == name {
			return rs
		}
	}
	rs := &FirewallRuleSet{Name: name}
	c.Rulesets = append(c.Rulesets, rs)
	return rs
}
