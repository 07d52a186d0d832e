package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// idempotentCall guards a create handler carrying an optional Idempotency-Key:
//   - the same caller, key, route and body replays the stored response
//   - the same key with a different body is a 409
//   - a retry that arrives while the first request still runs is a 409
type idempotentCall struct {
	s      *Server
	req    idempotency.Request
	active bool
}

func hashBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// beginIdempotent reports handled=true when it already wrote a response.
func (s *Server) beginIdempotent(w http.ResponseWriter, r *http.Request, caller domain.UserID, route string, body any) (*idempotentCall, bool) {
	call := &idempotentCall{s: s}
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" || s.idem == nil || caller == "" {
		return call, false
	}
	bodyHash, err := hashBody(body)
	if err != nil {
		s.writeAppError(w, r, err)
		return nil, true
	}
	call.req = idempotency.Request{
		Key:    idempotency.Key(key),
		User:   caller,
		Method: r.Method,
		Route:  route,
	}

	entry, claimed, err := s.idem.Reserve(r.Context(), call.req, bodyHash, s.now())
	if err != nil {
		s.writeAppError(w, r, err)
		return nil, true
	}
	if claimed {
		call.active = true
		return call, false
	}

	switch {
	case entry.BodyHash != bodyHash:
		writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "Idempotency key reused with a different payload", nil)
	case entry.Response == nil:
		writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_IN_USE", "A request with this idempotency key is still in progress", nil)
	default:
		w.Header().Set("Content-Type", entry.Response.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(entry.Response.StatusCode)
		_, _ = w.Write(entry.Response.Body)
	}
	return nil, true
}

// fail releases the reservation so the caller may retry, then renders err.
func (c *idempotentCall) fail(w http.ResponseWriter, r *http.Request, err error) {
	if c.active {
		if rerr := c.s.idem.Release(r.Context(), c.req); rerr != nil {
			c.s.logger.Warnw("idempotency key not released", "route", c.req.Route, "error", rerr)
		}
	}
	c.s.writeAppError(w, r, err)
}

// respond writes v and stores it for replay.
func (c *idempotentCall) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if !c.active {
		writeJSON(w, status, v)
		return
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		c.fail(w, r, err)
		return
	}
	if err := c.s.idem.Complete(r.Context(), c.req, idempotency.Response{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        buf.Bytes(),
	}); err != nil {
		c.s.logger.Warnw("idempotent response not recorded", "route", c.req.Route, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
