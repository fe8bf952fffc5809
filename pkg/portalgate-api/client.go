// Package portalgateAPI is the client for the daemon's control socket.
package portalgateAPI

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"portalgate/constant"
	"portalgate/pkg/portalgate-api/types"
)

// DefaultSocketPath is where the daemon listens unless WdctlSocket says
// otherwise.
const DefaultSocketPath = constant.RunDir + "/portalgate-ctl.sock"

type Client struct {
	client *http.Client
}

// NewClient returns a client dialing the control socket at socketPath;
// an empty path selects DefaultSocketPath.
func NewClient(socketPath string) Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", socketPath)
			},
		},
	}
	return Client{client: client}
}

func (c Client) getJSON(path string, out interface{}) error {
	resp, err := c.client.Get("http://unix/api/v1" + path)
	if err != nil {
		return fmt.Errorf("executing request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response failed: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var e types.ErrorRes
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
		return fmt.Errorf("daemon error: %s", e.Error)
	}
	return fmt.Errorf("daemon returned status %d", resp.StatusCode)
}

// Status fetches the daemon status summary.
func (c Client) Status() (types.StatusRes, error) {
	var res types.StatusRes
	err := c.getJSON("/status", &res)
	return res, err
}

// ConfigYAML fetches the running configuration rendered as YAML.
func (c Client) ConfigYAML() (string, error) {
	resp, err := c.client.Get("http://unix/api/v1/config")
	if err != nil {
		return "", fmt.Errorf("executing request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response failed: %w", err)
	}
	return string(data), nil
}

// Clients lists the connected clients.
func (c Client) Clients() ([]types.ClientRes, error) {
	var res []types.ClientRes
	err := c.getJSON("/clients", &res)
	return res, err
}

// RotateAuthServer demotes the current auth server to the tail of the
// list and returns the new current one.
func (c Client) RotateAuthServer() (types.RotateRes, error) {
	var res types.RotateRes
	resp, err := c.client.Post("http://unix/api/v1/authservers/rotate", "application/json", nil)
	if err != nil {
		return res, fmt.Errorf("executing request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return res, decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("decoding response failed: %w", err)
	}
	return res, nil
}

// KickClient revokes a client's access and removes it from the list.
func (c Client) KickClient(ip string) error {
	req, err := http.NewRequest(http.MethodDelete, "http://unix/api/v1/clients/"+ip, nil)
	if err != nil {
		return fmt.Errorf("creating request failed: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}
