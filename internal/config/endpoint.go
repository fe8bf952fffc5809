package config

import (
	"fmt"
	"net/url"
	"strings"
)

// BaseURL returns the endpoint's scheme://host:port/path prefix. The SSL
// flag selects both the scheme and the port.
func (s *ServerEndpoint) BaseURL() string {
	scheme, port := "http", s.HTTPPort
	if s.UseSSL {
		scheme, port = "https", s.SSLPort
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, s.Hostname, port, s.Path)
}

// scriptURL joins a script path fragment and query parameters onto the
// base URL. Fragments conventionally end with "?" ("login/?"), so the
// query is appended as-is when a separator is already present.
func (s *ServerEndpoint) scriptURL(fragment string, params url.Values) string {
	u := s.BaseURL() + fragment
	q := params.Encode()
	if q == "" {
		return u
	}
	if !strings.ContainsRune(fragment, '?') {
		u += "?"
	}
	return u + q
}

// LoginURL builds the portal login redirect for a client that has not
// authenticated yet.
func (s *ServerEndpoint) LoginURL(gwAddress string, gwPort int, gwID, origin string) string {
	return s.scriptURL(s.LoginScriptPathFragment, url.Values{
		"gw_address": {gwAddress},
		"gw_port":    {fmt.Sprintf("%d", gwPort)},
		"gw_id":      {gwID},
		"url":        {origin},
	})
}

// PortalURL is where a freshly authenticated client is sent.
func (s *ServerEndpoint) PortalURL(gwID string) string {
	return s.scriptURL(s.PortalScriptPathFragment, url.Values{
		"gw_id": {gwID},
	})
}

// MsgURL builds a link to the server-rendered message page.
func (s *ServerEndpoint) MsgURL(message string) string {
	return s.scriptURL(s.MsgScriptPathFragment, url.Values{
		"message": {message},
	})
}

// PingURL builds the health-check URL polled every CheckInterval.
func (s *ServerEndpoint) PingURL(gwID string) string {
	return s.scriptURL(s.PingScriptPathFragment, url.Values{
		"gw_id": {gwID},
	})
}

// AuthURL builds the token validation request for a connecting client.
func (s *ServerEndpoint) AuthURL(gwID, token, ip, mac string) string {
	return s.scriptURL(s.AuthScriptPathFragment, url.Values{
		"gw_id": {gwID},
		"token": {token},
		"ip":    {ip},
		"mac":   {mac},
	})
}
