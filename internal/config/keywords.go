package config

import "strings"

// opCode identifies a config file directive.
type opCode int

const (
	opBadOption opCode = iota
	opDaemon
	opDebugLevel
	opExternalInterface
	opGatewayID
	opDeviceID
	opGatewayInterface
	opGatewayAddress
	opGatewayPort
	opAuthServer
	opPortalServer
	opPlatformServer
	opLogServer
	opHTTPDMaxConn
	opHTTPDName
	opHTTPDRealm
	opHTTPDUsername
	opHTTPDPassword
	opClientTimeout
	opCheckInterval
	opAuthInterval
	opSyslogFacility
	opWdctlSocket
	opServerHostname
	opServerSSLAvailable
	opServerSSLPort
	opServerHTTPPort
	opLogServerPort
	opServerPath
	opServerLoginScript
	opServerPortalScript
	opServerMsgScript
	opServerPingScript
	opServerAuthScript
	opFirewallRule
	opFirewallRuleSet
	opTrustedMACList
	opHTMLMessageFile
	opProxyPort
)

// keywords maps lower-cased directive names to opcodes. Directive lookup
// is case-insensitive.
var keywords = map[string]opCode{
	"daemon":                   opDaemon,
	"debuglevel":               opDebugLevel,
	"externalinterface":        opExternalInterface,
	"gatewayid":                opGatewayID,
	"devid":                    opDeviceID,
	"gatewayinterface":         opGatewayInterface,
	"gatewayaddress":           opGatewayAddress,
	"gatewayport":              opGatewayPort,
	"authserver":               opAuthServer,
	"portalserver":             opPortalServer,
	"platformserver":           opPlatformServer,
	"logserver":                opLogServer,
	"httpdmaxconn":             opHTTPDMaxConn,
	"httpdname":                opHTTPDName,
	"httpdrealm":               opHTTPDRealm,
	"httpdusername":            opHTTPDUsername,
	"httpdpassword":            opHTTPDPassword,
	"clienttimeout":            opClientTimeout,
	"checkinterval":            opCheckInterval,
	"authinterval":             opAuthInterval,
	"syslogfacility":           opSyslogFacility,
	"wdctlsocket":              opWdctlSocket,
	"hostname":                 opServerHostname,
	"sslavailable":             opServerSSLAvailable,
	"sslport":                  opServerSSLPort,
	"httpport":                 opServerHTTPPort,
	"logport":                  opLogServerPort,
	"path":                     opServerPath,
	"loginscriptpathfragment":  opServerLoginScript,
	"portalscriptpathfragment": opServerPortalScript,
	"msgscriptpathfragment":    opServerMsgScript,
	"pingscriptpathfragment":   opServerPingScript,
	"authscriptpathfragment":   opServerAuthScript,
	"firewallruleset":          opFirewallRuleSet,
	"firewallrule":             opFirewallRule,
	"trustedmaclist":           opTrustedMACList,
	"htmlmessagefile":          opHTMLMessageFile,
	"proxyport":                opProxyPort,
}

// parseToken resolves a directive name to its opcode. Unknown names yield
// opBadOption, which every dispatcher treats as fatal.
func parseToken(name string) opCode {
	op, ok := keywords[strings.ToLower(name)]
	if !ok {
		return opBadOption
	}
	return op
}
