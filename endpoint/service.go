package endpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/nodemesh/core"
)

// Client sends requests of type Req to a service and decodes Resp replies.
type Client[Req, Resp any] struct {
	handle core.ClientHandle
	ts     *core.ServiceTypeSupport
	closer *closer
}

// NewClient wraps a transport client handle.
func NewClient[Req, Resp any](h core.ClientHandle, ts *core.ServiceTypeSupport) *Client[Req, Resp] {
	c := &Client[Req, Resp]{handle: h, ts: ts}
	c.closer = track(c, h.Close)
	return c
}

// ServiceName returns the resolved service name.
func (c *Client[Req, Resp]) ServiceName() string { return c.handle.ServiceName() }

// ServiceIsReady reports whether a server is currently available.
func (c *Client[Req, Resp]) ServiceIsReady() bool { return c.handle.ServiceIsReady() }

// Call sends req and blocks until the reply arrives or ctx is done.
func (c *Client[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	var resp Resp
	if c.closer.isClosed() {
		return resp, ErrClosed
	}
	sreq, err := c.ts.Request.Serialize(req)
	if err != nil {
		return resp, err
	}
	sresp, err := c.handle.Call(ctx, sreq)
	if err != nil {
		return resp, fmt.Errorf("call %s: %w", c.handle.ServiceName(), err)
	}
	if err := c.ts.Response.Unmarshal(sresp.Data, &resp); err != nil {
		return resp, fmt.Errorf("decode %s reply: %w", c.ts.Name, err)
	}
	return resp, nil
}

// WaitForService polls until a server is available or ctx is done.
func (c *Client[Req, Resp]) WaitForService(ctx context.Context, poll time.Duration) error {
	if c.handle.ServiceIsReady() {
		return nil
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.handle.ServiceIsReady() {
				return nil
			}
		}
	}
}

// Close releases the transport handle.
func (c *Client[Req, Resp]) Close() error {
	return c.closer.Close()
}

// Service answers requests of type Req with replies of type Resp.
type Service[Req, Resp any] struct {
	handle core.ServiceHandle
	closer *closer
}

// NewService wraps a transport service handle. The service stops answering
// once the returned Service becomes unreachable.
func NewService[Req, Resp any](h core.ServiceHandle) *Service[Req, Resp] {
	s := &Service[Req, Resp]{handle: h}
	s.closer = track(s, h.Close)
	return s
}

// ServiceName returns the resolved service name.
func (s *Service[Req, Resp]) ServiceName() string { return s.handle.ServiceName() }

// Close releases the transport handle.
func (s *Service[Req, Resp]) Close() error {
	return s.closer.Close()
}

// Handle adapts a typed handler to the transport's serialized handler.
func Handle[Req, Resp any](ts *core.ServiceTypeSupport, handler func(ctx context.Context, req Req) (Resp, error)) core.ServiceHandler {
	return func(ctx context.Context, sreq *core.SerializedMessage) (*core.SerializedMessage, error) {
		var req Req
		if err := ts.Request.Unmarshal(sreq.Data, &req); err != nil {
			return nil, fmt.Errorf("decode %s request: %w", ts.Name, err)
		}
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, err
		}
		return ts.Response.Serialize(resp)
	}
}
