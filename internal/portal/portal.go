// Package portal is the captive-portal HTTP front end served on the
// gateway address. Unknown clients are redirected to the auth server's
// login page; the auth callback validates tokens and opens the firewall.
package portal

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"portalgate/internal/app"
)

type handler struct {
	app *app.App
}

// NewRouter builds the portal router. The status page is protected with
// basic auth when HTTPDUserName is configured.
func NewRouter(a *app.App) chi.Router {
	h := &handler{app: a}
	cfg := a.Config()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/portalgate/auth", h.auth)
	r.Get("/portalgate/msg", h.message)

	r.Group(func(r chi.Router) {
		if cfg.HTTPDUsername != "" {
			r.Use(middleware.BasicAuth(cfg.HTTPDRealm, map[string]string{
				cfg.HTTPDUsername: cfg.HTTPDPassword,
			}))
		}
		r.Get("/portalgate/status", h.status)
	})

	r.NotFound(h.redirect)
	return r
}

// redirect sends an unauthenticated client to the auth server login
// page, carrying the originally requested URL.
func (h *handler) redirect(w http.ResponseWriter, r *http.Request) {
	cfg := h.app.Config()
	srv := cfg.AuthServer()
	if srv == nil {
		http.Error(w, "no auth server configured", http.StatusServiceUnavailable)
		return
	}
	origin := fmt.Sprintf("http://%s%s", r.Host, r.RequestURI)
	target := srv.LoginURL(cfg.GatewayAddress, cfg.GatewayPort, cfg.GatewayID, origin)
	log.Debug().Str("client", r.RemoteAddr).Str("target", target).Msg("redirecting to login")
	http.Redirect(w, r, target, http.StatusFound)
}

// auth is the callback the auth server redirects a client back to with a
// token. On success the client is granted firewall access and forwarded
// to the portal page.
func (h *handler) auth(w http.ResponseWriter, r *http.Request) {
	cfg := h.app.Config()
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is missing", http.StatusBadRequest)
		return
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	mac, err := arpGet(ip)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("failed to find client MAC")
		http.Error(w, "failed to identify client", http.StatusForbidden)
		return
	}

	ok, err := h.app.Authenticate(r.Context(), token, ip, mac)
	if err != nil {
		http.Error(w, "auth server error", http.StatusBadGateway)
		return
	}
	if !ok {
		srv := cfg.AuthServer()
		if srv != nil {
			http.Redirect(w, r, srv.MsgURL("denied"), http.StatusFound)
			return
		}
		http.Error(w, "access denied", http.StatusForbidden)
		return
	}

	h.app.Clients().Add(ip, mac, token)
	if fw := h.app.Firewall(); fw != nil {
		if err := fw.AllowClient(ip, mac); err != nil {
			log.Error().Err(err).Str("ip", ip).Msg("failed to open firewall for client")
			http.Error(w, "failed to grant access", http.StatusInternalServerError)
			return
		}
	}

	srv := cfg.AuthServer()
	if srv == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, srv.PortalURL(cfg.GatewayID), http.StatusFound)
}

// message serves the locally configured HTML message file.
func (h *handler) message(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(h.app.Config().HTMLMessageFile)
	if err != nil {
		http.Error(w, "message file unavailable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	cfg := h.app.Config()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "portalgate\ngateway id: %s\ninterface: %s\naddress: %s:%d\nclients: %d\n",
		cfg.GatewayID, cfg.GatewayInterface, cfg.GatewayAddress, cfg.GatewayPort, h.app.Clients().Len())
	for _, c := range h.app.Clients().All() {
		fmt.Fprintf(w, "  %s %s last seen %s\n", c.IP, c.MAC, c.LastSeen.Format("2006-01-02 15:04:05"))
	}
}
