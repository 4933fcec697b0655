// Package relay bridges blocking HTTP requests to asynchronous WebSocket
// replies. A caller issues a correlated request, broadcasts the request id
// to connected editor peers, and parks on the returned waiter until a peer
// responds or the deadline fires.
package relay

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/mr-tron/base58"

	"github.com/vellum-studio/vellum/errors"
	"github.com/vellum-studio/vellum/logger"
)

// Kind identifies a correlated request family. Each kind has its own
// outbound frame type and deadline.
type Kind string

const (
	KindMermaid     Kind = "mermaid"
	KindExportImage Kind = "exportImage"
	KindViewport    Kind = "viewport"
)

// Result is delivered to exactly one waiter: a peer payload or a terminal
// error (peer-reported failure or deadline).
type Result struct {
	Payload map[string]interface{}
	Err     error
}

type pendingRequest struct {
	kind   Kind
	waiter chan Result
	timer  *time.Timer
}

// Correlator tracks in-flight correlated requests by id. All operations are
// safe for concurrent use.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*pendingRequest
}

func NewCorrelator() *Correlator {
	return &Correlator{
		pending: make(map[string]*pendingRequest),
	}
}

// NewRequestID mints a correlation id: base58 over 16 random bytes.
func NewRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return base58.Encode(buf)
}

// Issue allocates an id, registers a deadline timer, and returns a
// single-shot waiter. The waiter receives exactly one Result from
// Resolve, Fail, or the deadline.
func (c *Correlator) Issue(kind Kind, timeout time.Duration) (string, <-chan Result) {
	id := NewRequestID()
	req := &pendingRequest{
		kind:   kind,
		waiter: make(chan Result, 1),
	}

	c.mu.Lock()
	c.pending[id] = req
	req.timer = time.AfterFunc(timeout, func() {
		c.onDeadline(id)
	})
	c.mu.Unlock()

	logger.Debugw("Issued correlated request",
		"kind", kind,
		"request_id", id,
		"timeout", timeout,
	)
	return id, req.waiter
}

// take removes a pending entry and stops its timer. Returns nil when the id
// is unknown, meaning the request was already answered or expired.
func (c *Correlator) take(id string) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	if req.timer != nil {
		req.timer.Stop()
	}
	return req
}

// Resolve hands the payload to the waiter. The first responder wins; a
// false return means the id was not pending and the sender should still be
// acknowledged with success (late-result policy).
func (c *Correlator) Resolve(id string, payload map[string]interface{}) bool {
	req := c.take(id)
	if req == nil {
		logger.Debugw("Discarding late result", "request_id", id)
		return false
	}

	req.waiter <- Result{Payload: payload}
	return true
}

// Fail signals the waiter with a peer-reported error. Same first-call-wins
// and late-result semantics as Resolve.
func (c *Correlator) Fail(id string, err error) bool {
	req := c.take(id)
	if req == nil {
		logger.Debugw("Discarding late error", "request_id", id)
		return false
	}

	logger.Warnw("Correlated request failed",
		"kind", req.kind,
		"request_id", id,
		"error", err,
	)
	req.waiter <- Result{Err: errors.Wrapf(errors.ErrPeerError, "%v", err)}
	return true
}

func (c *Correlator) onDeadline(id string) {
	req := c.take(id)
	if req == nil {
		return
	}

	logger.Warnw("Correlated request timed out",
		"kind", req.kind,
		"request_id", id,
	)
	req.waiter <- Result{Err: errors.Wrapf(errors.ErrTimeout, "%s request timed out", req.kind)}
}

// FailAll terminates every pending request, used during server shutdown so
// parked HTTP handlers unblock promptly.
func (c *Correlator) FailAll(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.mu.Unlock()

	for _, req := range pending {
		if req.timer != nil {
			req.timer.Stop()
		}
		req.waiter <- Result{Err: err}
	}
}

// PendingCount reports the number of in-flight requests.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
