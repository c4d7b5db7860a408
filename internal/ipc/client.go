package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/displayd/internal/runtimepath"
)

// Client talks to the daemon over its control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new control-socket client.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return &Client{socketPath: socketPath, timeout: 5 * time.Second}
}

func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// Status retrieves the daemon's current layout and database state.
func (c *Client) Status() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandStatus})
	if err != nil {
		return nil, err
	}
	var data StatusData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &data, nil
}

// ListDB retrieves every identity-set -> layout mapping the daemon has
// learned.
func (c *Client) ListDB() (*ListDBData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListDB})
	if err != nil {
		return nil, err
	}
	var data ListDBData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse list-db data: %w", err)
	}
	return &data, nil
}

// Forget removes a stored database entry by its identity-set key.
func (c *Client) Forget(identitySet string) error {
	payload, err := json.Marshal(ForgetPayload{IdentitySet: identitySet})
	if err != nil {
		return fmt.Errorf("failed to marshal forget payload: %w", err)
	}
	_, err = c.sendRequest(&Request{Command: CommandForget, Payload: payload})
	return err
}

// Reconcile forces an immediate reconciliation pass.
func (c *Client) Reconcile() error {
	_, err := c.sendRequest(&Request{Command: CommandReconcile})
	return err
}

// DumpBackend retrieves the backend's diagnostic snapshot.
func (c *Client) DumpBackend() (string, error) {
	resp, err := c.sendRequest(&Request{Command: CommandDumpBackend})
	if err != nil {
		return "", err
	}
	var data DumpBackendData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("failed to parse dump-backend data: %w", err)
	}
	return data.Dump, nil
}

// Ping checks if the daemon is responding.
func (c *Client) Ping() error {
	_, err := c.Status()
	return err
}
