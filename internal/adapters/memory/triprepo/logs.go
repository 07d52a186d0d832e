package triprepo

import (
	"context"
	"sort"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
)

func (r *Repo) AppendLog(ctx context.Context, l domain.TripLog) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[l.TripID]; !ok {
		return triprepo.ErrNotFound
	}
	l.Details = cloneDetails(l.Details)
	r.logs[l.TripID] = append(r.logs[l.TripID], l)
	return nil
}

func (r *Repo) ListLogs(ctx context.Context, trip domain.TripID, limit int) ([]domain.TripLog, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.logs[trip]
	out := make([]domain.TripLog, 0, len(src))
	for _, l := range src {
		l.Details = cloneDetails(l.Details)
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneDetails(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
