// Package command implements command channels.
package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"netsim/pkg/settings"
)

// UDSClient is a JSON-RPC client over Unix Domain Socket.
type UDSClient struct {
	socketPath string
	timeout    time.Duration
}

// NewUDSClient creates a new UDS client.
func NewUDSClient(socketPath string, timeout time.Duration) *UDSClient {
	if timeout == 0 {
		timeout = 10 * time.Second // Default timeout
	}
	return &UDSClient{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// Call sends a command and waits for response.
func (c *UDSClient) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	// Create connection with timeout
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	// Set deadline
	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	// Marshal params
	var paramsJSON json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsJSON = data
	}

	// Create JSON-RPC request
	reqID := fmt.Sprintf("req-%d", time.Now().UnixNano()) // Use string ID
	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsJSON,
		ID:      reqID,
	}

	// Send request
	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	// Read response
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return nil, fmt.Errorf("connection closed without response")
	}

	// Parse JSON-RPC response
	var jsonrpcResp JSONRPCResponse
	if err := json.Unmarshal(scanner.Bytes(), &jsonrpcResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Verify response ID matches (convert both to string for comparison)
	respIDStr := fmt.Sprintf("%v", jsonrpcResp.ID)
	if respIDStr != reqID {
		return nil, fmt.Errorf("response ID mismatch: expected %v, got %v", reqID, respIDStr)
	}

	// Convert to internal Response format
	resp := &Response{
		ID:     fmt.Sprintf("%v", jsonrpcResp.ID),
		Result: jsonrpcResp.Result,
		Error:  jsonrpcResp.Error,
	}

	return resp, nil
}

// StartProcessing starts a capture/impairment session with the given filter
// and settings. A nil settings uses the daemon's defaults.
func (c *UDSClient) StartProcessing(ctx context.Context, filter string, s *settings.Settings) (*Response, error) {
	return c.Call(ctx, "start_processing", StartProcessingParams{Filter: filter, Settings: s})
}

// StopProcessing stops the active capture/impairment session.
func (c *UDSClient) StopProcessing(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "stop_processing", nil)
}

// GetStatus returns whether the session is running, its filter, and a stats
// snapshot.
func (c *UDSClient) GetStatus(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "get_status", nil)
}

// UpdateSettings replaces the shared settings wholesale.
func (c *UDSClient) UpdateSettings(ctx context.Context, s settings.Settings) (*Response, error) {
	return c.Call(ctx, "update_settings", UpdateSettingsParams{Settings: s})
}

// UpdateFilter replaces the capture filter and records it in history.
func (c *UDSClient) UpdateFilter(ctx context.Context, filter string) (*Response, error) {
	return c.Call(ctx, "update_filter", UpdateFilterParams{Filter: filter})
}

// GetSettings returns the current settings.
func (c *UDSClient) GetSettings(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "get_settings", nil)
}

// GetFilter returns the current filter string.
func (c *UDSClient) GetFilter(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "get_filter", nil)
}

// SaveConfig persists the current settings under name.
func (c *UDSClient) SaveConfig(ctx context.Context, name string) (*Response, error) {
	return c.Call(ctx, "save_config", SaveConfigParams{Name: name})
}

// LoadConfig loads and applies the named settings profile.
func (c *UDSClient) LoadConfig(ctx context.Context, name string) (*Response, error) {
	return c.Call(ctx, "load_config", LoadConfigParams{Name: name})
}

// ListConfigs returns the names of all saved settings profiles.
func (c *UDSClient) ListConfigs(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "list_configs", nil)
}

// DeleteConfig removes the named settings profile.
func (c *UDSClient) DeleteConfig(ctx context.Context, name string) (*Response, error) {
	return c.Call(ctx, "delete_config", DeleteConfigParams{Name: name})
}

// GetFilterHistory returns the saved filter strings, most-recent-first.
func (c *UDSClient) GetFilterHistory(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "get_filter_history", nil)
}

// ClearFilterHistory empties the saved filter history.
func (c *UDSClient) ClearFilterHistory(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "clear_filter_history", nil)
}

// StartTCBandwidth starts the standalone throttler sender at limitKbps for
// packets matching filter.
func (c *UDSClient) StartTCBandwidth(ctx context.Context, limitKbps float64, filter string) (*Response, error) {
	return c.Call(ctx, "start_tc_bandwidth", StartTCBandwidthParams{LimitKbps: limitKbps, Filter: filter})
}

// StopTCBandwidth stops the standalone throttler sender.
func (c *UDSClient) StopTCBandwidth(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "stop_tc_bandwidth", nil)
}

// GetTCBandwidthStatus reports whether the throttler sender is active.
func (c *UDSClient) GetTCBandwidthStatus(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "get_tc_bandwidth_status", nil)
}

// Ping checks whether the daemon is reachable and responding.
func (c *UDSClient) Ping(ctx context.Context) error {
	_, err := c.GetStatus(ctx)
	return err
}
