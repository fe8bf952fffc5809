//go:build !entware

package constant

const (
	AppConfigDir = "/etc/portalgate"
	AppShareDir  = "/usr/share/portalgate"
	AppDataDir   = "/var/lib/portalgate"
	RunDir       = "/var/run"
)
