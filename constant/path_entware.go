//go:build entware

package constant

const (
	AppConfigDir = "/opt/etc/portalgate"
	AppShareDir  = "/opt/usr/share/portalgate"
	AppDataDir   = "/opt/var/lib/portalgate"
	RunDir       = "/opt/var/run"
)
