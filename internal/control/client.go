package control

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	uuid "github.com/satori/go.uuid"
)

// Client is a thin synchronous request/response client for the UDS
// control protocol, used by the `task`/`shutdown` CLI subcommands.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient builds a client bound to socketPath with a per-call dial
// and round-trip timeout.
func NewClient(socketPath string, timeout time.Duration) *Client {
	return &Client{socketPath: socketPath, timeout: timeout}
}

func (c *Client) call(method string, params interface{}) (Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return Response{}, fmt.Errorf("control: dial %s: %w", c.socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	id, err := uuid.NewV4()
	if err != nil {
		return Response{}, fmt.Errorf("control: generate request id: %w", err)
	}
	cmd := Command{ID: id.String(), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Response{}, err
		}
		cmd.Params = raw
	}

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return Response{}, fmt.Errorf("control: send %s: %w", method, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("control: read response to %s: %w", method, err)
	}
	return resp, nil
}

// Ping checks whether the daemon is reachable.
func (c *Client) Ping() error {
	resp, err := c.call("ping", nil)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("ping: %s", resp.Error.Message)
	}
	return nil
}

// TaskList requests the catalog's task names.
func (c *Client) TaskList() (Response, error) {
	return c.call("task_list", nil)
}

// TaskStatus requests the running-count snapshot.
func (c *Client) TaskStatus() (Response, error) {
	return c.call("task_status", nil)
}

// TaskRun requests a one-off run of the named task.
func (c *Client) TaskRun(taskName string, args map[string]any) (Response, error) {
	return c.call("task_run", runParams{TaskName: taskName, Args: args})
}

// Shutdown requests a graceful daemon shutdown.
func (c *Client) Shutdown() (Response, error) {
	return c.call("daemon_shutdown", nil)
}
