package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/idempotency"
)

var _ idempotency.Store = (*Store)(nil)

// Store keeps idempotency entries in a map. Bodies are copied in and out.
type Store struct {
	mu      sync.Mutex
	entries map[idempotency.Request]idempotency.Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[idempotency.Request]idempotency.Entry)}
}

func (s *Store) Reserve(_ context.Context, req idempotency.Request, bodyHash string, at time.Time) (idempotency.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[req]; ok {
		return cloneEntry(e), false, nil
	}
	e := idempotency.Entry{BodyHash: bodyHash, CreatedAt: at.UTC()}
	s.entries[req] = e
	return e, true, nil
}

func (s *Store) Complete(_ context.Context, req idempotency.Request, resp idempotency.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[req]
	if !ok {
		return idempotency.ErrNotReserved
	}
	resp.Body = append([]byte(nil), resp.Body...)
	e.Response = &resp
	s.entries[req] = e
	return nil
}

func (s *Store) Release(_ context.Context, req idempotency.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[req]; ok && e.Response == nil {
		delete(s.entries, req)
	}
	return nil
}

func cloneEntry(e idempotency.Entry) idempotency.Entry {
	if e.Response != nil {
		r := *e.Response
		r.Body = append([]byte(nil), r.Body...)
		e.Response = &r
	}
	return e
}
