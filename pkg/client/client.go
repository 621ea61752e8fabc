// Package client provides the Go bindings for the waybar-vd daemon's HTTP
// API over its unix socket.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/givani30/waybar-vd/errors"
	"github.com/givani30/waybar-vd/internal/daemon/server"
	"github.com/givani30/waybar-vd/internal/engine"
	"github.com/givani30/waybar-vd/internal/vdesk"
)

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// Client calls the daemon's HTTP API over its Unix socket.
type Client struct {
	httpClient *http.Client
	socketPath string
}

// New creates a client for the daemon socket at the given path.
func New(socketPath string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		DisableKeepAlives: false,
		MaxIdleConns:      10,
		IdleConnTimeout:   90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
		socketPath: socketPath,
	}
}

// IsRunning returns true if the daemon is available and responding.
func (c *Client) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// State returns the daemon's current desktop table and connection status.
func (c *Client) State(ctx context.Context) (*server.StateResponse, error) {
	var state server.StateResponse
	if err := c.getJSON(ctx, "/api/state", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Desktop queries the daemon for a single desktop by id.
func (c *Client) Desktop(ctx context.Context, id int) (*vdesk.VirtualDesktop, error) {
	var desktop vdesk.VirtualDesktop
	if err := c.getJSON(ctx, fmt.Sprintf("/api/desktop?id=%d", id), &desktop); err != nil {
		return nil, err
	}
	return &desktop, nil
}

// Metrics returns the daemon engine's counters.
func (c *Client) Metrics(ctx context.Context) (*engine.MetricsSnapshot, error) {
	var metrics engine.MetricsSnapshot
	if err := c.getJSON(ctx, "/api/metrics", &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

// Config returns the configuration the daemon is running with.
func (c *Client) Config(ctx context.Context) (*server.RunningConfig, error) {
	var cfg server.RunningConfig
	if err := c.getJSON(ctx, "/api/config", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Switch asks the daemon to activate the given desktop.
func (c *Client) Switch(ctx context.Context, id int) error {
	body, _ := json.Marshal(map[string]int{"id": id})
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/api/switch", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.DaemonNotRunning(c.socketPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// Reconnect asks the daemon to reset its retry budget and try the
// compositor connection again immediately.
func (c *Client) Reconnect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/api/reconnect", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.DaemonNotRunning(c.socketPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// Stream subscribes to desktop table updates via Server-Sent Events.
// The returned channel is closed when the context is cancelled or the
// connection is lost.
func (c *Client) Stream(ctx context.Context) (<-chan engine.Update, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// Streaming needs its own client with no timeout.
	streamTransport := &http.Transport{
		DialContext: func(dialCtx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(dialCtx, "unix", c.socketPath)
		},
	}
	streamClient := &http.Client{
		Transport: streamTransport,
		Timeout:   0,
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.DaemonNotRunning(c.socketPath)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	ch := make(chan engine.Update, 10)

	go func() {
		defer resp.Body.Close()
		defer close(ch)
		defer streamTransport.CloseIdleConnections()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()

			// Skip comments and empty lines
			if strings.HasPrefix(line, ":") || line == "" {
				continue
			}

			if strings.HasPrefix(line, "data: ") {
				jsonStr := strings.TrimPrefix(line, "data: ")
				var update engine.Update
				if err := json.Unmarshal([]byte(jsonStr), &update); err != nil {
					continue // Skip malformed data
				}

				select {
				case ch <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close cleans up any resources used by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// getJSON issues a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.DaemonNotRunning(c.socketPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError recovers a coded error from a non-200 response body, falling
// back to a status-only error.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var vderr errors.VdError
	if json.Unmarshal(body, &vderr) == nil && vderr.Code != "" {
		return &vderr
	}
	return fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
