// Package bus implements the directed request store: pending requests in
// FIFO order, resolved requests retained for audit.
package bus

import (
	"time"

	"github.com/logica-lang/logica/infrastructure/errors"
)

// RequestStatus is the lifecycle state of a request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRefused  RequestStatus = "refused"
	StatusExpired  RequestStatus = "expired"
)

// Request is a directed message from one speaker to another.
type Request struct {
	RequestID    int
	FromSpeaker  int
	ToSpeaker    int
	Action       string
	Data         interface{}
	Status       RequestStatus
	CreatedAt    time.Time
	ExpiresAt    *time.Time
	ResponseData interface{}
}

// Bus holds pending and resolved requests. Pending order is first-in
// first-out; there is no priority.
type Bus struct {
	nextID   int
	pending  []*Request
	resolved []*Request
	now      func() time.Time
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{now: time.Now}
}

// Create allocates the next request id and appends a pending request.
func (b *Bus) Create(from, to int, action string, data interface{}, expiresAt *time.Time) *Request {
	r := &Request{
		RequestID:   b.nextID,
		FromSpeaker: from,
		ToSpeaker:   to,
		Action:      action,
		Data:        data,
		Status:      StatusPending,
		CreatedAt:   b.now(),
		ExpiresAt:   expiresAt,
	}
	b.nextID++
	b.pending = append(b.pending, r)
	return r
}

// Get searches pending then resolved.
func (b *Bus) Get(requestID int) (*Request, bool) {
	for _, r := range b.pending {
		if r.RequestID == requestID {
			return r, true
		}
	}
	for _, r := range b.resolved {
		if r.RequestID == requestID {
			return r, true
		}
	}
	return nil, false
}

// Respond resolves a pending request. It fails when the request does not
// exist, is not pending, or the responder is not the target speaker.
func (b *Bus) Respond(requestID, responder int, accept bool, responseData interface{}) (*Request, error) {
	r, ok := b.Get(requestID)
	if !ok {
		return nil, errors.New(errors.ErrCodeRequestNotFound, "no such request").
			WithDetails("request_id", requestID)
	}
	if r.Status != StatusPending {
		return nil, errors.New(errors.ErrCodeRequestNotFound, "request already resolved").
			WithDetails("request_id", requestID).
			WithDetails("status", string(r.Status))
	}
	if r.ToSpeaker != responder {
		return nil, errors.New(errors.ErrCodeTargetNotFound, "responder is not the request target").
			WithDetails("request_id", requestID).
			WithDetails("responder", responder).
			WithDetails("target", r.ToSpeaker)
	}

	if accept {
		r.Status = StatusAccepted
	} else {
		r.Status = StatusRefused
	}
	r.ResponseData = responseData
	b.resolve(r)
	return r, nil
}

// PendingFor returns pending requests addressed to the speaker, FIFO.
func (b *Bus) PendingFor(speaker int) []*Request {
	var out []*Request
	for _, r := range b.pending {
		if r.ToSpeaker == speaker {
			out = append(out, r)
		}
	}
	return out
}

// PendingFrom returns pending requests sent by the speaker, FIFO.
func (b *Bus) PendingFrom(speaker int) []*Request {
	var out []*Request
	for _, r := range b.pending {
		if r.FromSpeaker == speaker {
			out = append(out, r)
		}
	}
	return out
}

// CheckTimeouts transitions every pending request with expires_at <= now to
// expired, moves it to resolved, and returns the expired set. Nothing in the
// kernel advances time by itself; hosts call this, directly or through a
// Sweeper.
func (b *Bus) CheckTimeouts(now time.Time) []*Request {
	var expired []*Request
	for _, r := range b.pending {
		if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
			expired = append(expired, r)
		}
	}
	for _, r := range expired {
		r.Status = StatusExpired
		b.resolve(r)
	}
	return expired
}

// PendingCount returns the number of pending requests.
func (b *Bus) PendingCount() int {
	return len(b.pending)
}

func (b *Bus) resolve(r *Request) {
	for i, p := range b.pending {
		if p.RequestID == r.RequestID {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			break
		}
	}
	b.resolved = append(b.resolved, r)
}
