package userrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/userrepo"
)

var _ userrepo.Repository = (*Repo)(nil)

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	db *postgres.DB
}

func NewRepo(db *postgres.DB) *Repo {
	return &Repo{db: db}
}

const selectUser = `SELECT id, name, email, token, created_at FROM users`

func (r *Repo) Create(ctx context.Context, u domain.User) error {
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO users (id, name, email, token, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, u.Name, u.Email, u.Token, u.CreatedAt.UTC())
	if err != nil {
		pe, ok := postgres.AsPgError(err)
		if ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "users_email_unique":
				return userrepo.ErrEmailTaken
			case "users_pkey", "users_token_unique":
				return userrepo.ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.User{}, userrepo.ErrNotFound
	}
	return r.getOne(ctx, selectUser+` WHERE id = $1`, uid)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *Repo) GetByToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, userrepo.ErrNotFound
	}
	return r.getOne(ctx, selectUser+` WHERE token = $1`, token)
}

func (r *Repo) getOne(ctx context.Context, query string, arg any) (domain.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, userrepo.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func (r *Repo) ListByIDs(ctx context.Context, ids []domain.UserID) ([]domain.User, error) {
	uids := make([]string, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		uid, err := uuid.Parse(string(id))
		if err != nil {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		uids = append(uids, uid.String())
	}
	if len(uids) == 0 {
		return []domain.User{}, nil
	}

	rows, err := r.db.Statement().
		Select("id", "name", "email", "token", "created_at").
		From("users").
		Where(sq.Eq{"id": uids}).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := make([]domain.User, 0, len(uids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u  domain.User
		id uuid.UUID
	)
	if err := row.Scan(&id, &u.Name, &u.Email, &u.Token, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	u.ID = domain.UserID(id.String())
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
