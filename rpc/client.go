package rpc

import (
	"errors"
	"fmt"
	"net/rpc"
	"strings"

	"github.com/shenjiangwei/earlyAllocator/early"
)

// Client talks to an arena Server
type Client struct {
	client *rpc.Client
}

// NewClient connects to the server at address
func NewClient(address string) (*Client, error) {
	client, err := rpc.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return &Client{client: client}, nil
}

// AllocBytes allocates size bytes aligned to align
func (c *Client) AllocBytes(size, align uint64) (uint64, error) {
	resp := &AllocResponse{}
	if err := c.call("AllocBytes", &AllocRequest{Size: size, Align: align}, resp); err != nil {
		return 0, err
	}
	return resp.Addr, decodeError(resp.Error)
}

// ReleaseBytes releases one byte allocation
func (c *Client) ReleaseBytes(addr, size, align uint64) error {
	resp := &FreeResponse{}
	if err := c.call("ReleaseBytes", &FreeRequest{Addr: addr, Size: size, Align: align}, resp); err != nil {
		return err
	}
	return decodeError(resp.Error)
}

// AllocPages allocates numPages pages aligned to align
func (c *Client) AllocPages(numPages, align uint64) (uint64, error) {
	resp := &AllocResponse{}
	if err := c.call("AllocPages", &PagesRequest{NumPages: numPages, Align: align}, resp); err != nil {
		return 0, err
	}
	return resp.Addr, decodeError(resp.Error)
}

// ReleasePages asks the server to release pages. The arena never reclaims
// pages, so this reports early.ErrUnsupported.
func (c *Client) ReleasePages(addr, numPages uint64) error {
	resp := &FreeResponse{}
	if err := c.call("ReleasePages", &PagesRequest{Addr: addr, NumPages: numPages}, resp); err != nil {
		return err
	}
	return decodeError(resp.Error)
}

// Stats fetches the arena state
func (c *Client) Stats() (*StatsResponse, error) {
	resp := &StatsResponse{}
	if err := c.call("Stats", &StatsRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) call(method string, req, resp interface{}) error {
	if err := c.client.Call(ServiceName+"."+method, req, resp); err != nil {
		return fmt.Errorf("RPC call %s failed: %w", method, err)
	}
	return nil
}

var knownErrors = []error{
	early.ErrNoMemory,
	early.ErrUnsupported,
	early.ErrInvalidParam,
	early.ErrNotInitialized,
	early.ErrAlreadyInitialized,
}

// decodeError turns a server error message back into an error that matches
// the early sentinels with errors.Is.
func decodeError(msg string) error {
	if msg == "" {
		return nil
	}
	for _, known := range knownErrors {
		if rest, ok := strings.CutPrefix(msg, known.Error()); ok {
			return fmt.Errorf("%w%s", known, rest)
		}
	}
	return errors.New(msg)
}
