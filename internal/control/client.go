package control

import (
	"fmt"
	"net"
	"time"
)

// dialTimeout bounds how long a client waits to connect before giving up.
const dialTimeout = 2 * time.Second

// Client is a thin UDS client for the control endpoint, used by the CLI's
// status/start/stop subcommands.
type Client struct {
	conn net.Conn
}

// Dial connects to the control socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", path, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Status queries one (or, if service is empty, every) service's state.
func (c *Client) Status(service string) ([]ServiceStatus, error) {
	resp, err := c.roundTrip(Request{Op: OpStatus, Service: service})
	if err != nil {
		return nil, err
	}
	return resp.Statuses, nil
}

// Change sends a start/stop command for service.
func (c *Client) Change(service string, action Action) error {
	_, err := c.roundTrip(Request{Op: OpChange, Service: service, Action: action})
	return err
}

func (c *Client) roundTrip(req Request) (Response, error) {
	if err := writeFrame(c.conn, req); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := readFrame(c.conn, &resp); err != nil {
		return Response{}, fmt.Errorf("control: read response: %w", err)
	}
	if resp.Error != "" {
		return Response{}, fmt.Errorf("control: %s", resp.Error)
	}
	return resp, nil
}
