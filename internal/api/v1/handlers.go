// Package v1 implements the control API served over the wdctl socket.
package v1

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"portalgate/constant"
	"portalgate/internal/app"
	"portalgate/pkg/portalgate-api/types"
)

type Handler struct {
	app *app.App
}

func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// GetStatus summarizes the running gateway.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	cfg := h.app.Config()

	var authServer string
	if srv := cfg.AuthServer(); srv != nil {
		authServer = srv.Hostname
	}
	rulesets := make([]string, 0, len(cfg.Rulesets))
	for _, rs := range cfg.Rulesets {
		rulesets = append(rulesets, rs.Name)
	}

	WriteJson(w, http.StatusOK, types.StatusRes{
		Version:          constant.Version,
		UptimeSeconds:    int64(time.Since(h.app.StartedAt()) / time.Second),
		GatewayID:        cfg.GatewayID,
		GatewayInterface: cfg.GatewayInterface,
		GatewayAddress:   cfg.GatewayAddress,
		GatewayPort:      cfg.GatewayPort,
		AuthServer:       authServer,
		ClientCount:      h.app.Clients().Len(),
		Rulesets:         rulesets,
	})
}

// GetConfig renders the running configuration as YAML.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	out, err := yaml.Marshal(h.app.Config())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to marshal config: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// RotateAuthServer demotes the current auth server to the tail.
func (h *Handler) RotateAuthServer(w http.ResponseWriter, r *http.Request) {
	cfg := h.app.Config()
	srv := cfg.AuthServer()
	if srv == nil {
		WriteError(w, http.StatusConflict, "no auth server configured")
		return
	}
	cfg.MarkAuthServerBad(srv)

	var current string
	if cur := cfg.AuthServer(); cur != nil {
		current = cur.Hostname
	}
	WriteJson(w, http.StatusOK, types.RotateRes{AuthServer: current})
}

// GetClients lists the connected clients.
func (h *Handler) GetClients(w http.ResponseWriter, r *http.Request) {
	all := h.app.Clients().All()
	out := make([]types.ClientRes, 0, len(all))
	for _, c := range all {
		out = append(out, types.ClientRes{
			IP:        c.IP,
			MAC:       c.MAC,
			FirstSeen: c.FirstSeen,
			LastSeen:  c.LastSeen,
		})
	}
	WriteJson(w, http.StatusOK, out)
}

// DeleteClient revokes a client's firewall access and drops it from the
// list.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	c := h.app.Clients().FindByIP(ip)
	if c == nil {
		WriteError(w, http.StatusNotFound, "client not found")
		return
	}
	if fw := h.app.Firewall(); fw != nil {
		if err := fw.DenyClient(c.IP, c.MAC); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	h.app.Clients().Remove(ip)
	WriteJson(w, http.StatusOK, struct{}{})
}
