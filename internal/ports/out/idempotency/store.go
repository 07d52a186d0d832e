package idempotency

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

// Key is the caller-provided Idempotency-Key header value.
type Key string

// Request scopes a key to one caller and one route ("POST" + "/trips").
type Request struct {
	Key    Key
	User   domain.UserID
	Method string
	Route  string
}

// Response is the stored outcome replayed to retries.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Entry is the state recorded for a Request. Response is nil while the first
// request holding the key is still running.
type Entry struct {
	BodyHash  string
	Response  *Response
	CreatedAt time.Time
}

// Store records which payload a key was first used with and what it produced.
type Store interface {
	// Reserve claims req for bodyHash. When req is already known the existing entry
	// is returned with claimed=false and nothing is written.
	Reserve(ctx context.Context, req Request, bodyHash string, at time.Time) (entry Entry, claimed bool, err error)
	// Complete attaches the response to a reserved request.
	Complete(ctx context.Context, req Request, resp Response) error
	// Release forgets a reservation whose request failed, so the key may be retried.
	Release(ctx context.Context, req Request) error
}
