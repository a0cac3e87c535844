package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL for deployments that self-host
// profile documents instead of keeping them in the remote document store.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const pgUniqueViolation = "23505"

func (s *PGStore) Create(ctx context.Context, p *Profile) error {
	perms, err := json.Marshal(p.Permissions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into profiles(
			user_id, first_name, last_name, email, phone,
			role, permissions, status, email_verified, created_at, updated_at
		) values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.UserID, p.FirstName, p.LastName, p.Email, p.Phone,
		string(p.Role), perms, p.Status, p.EmailVerified, p.CreatedAt, p.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGStore) Get(ctx context.Context, userID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		select user_id, first_name, last_name, email, phone,
		       role, permissions, status, email_verified, created_at, updated_at
		from profiles where user_id=$1`, userID,
	)
	var (
		p     Profile
		role  string
		perms []byte
	)
	err := row.Scan(
		&p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&role, &perms, &p.Status, &p.EmailVerified, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Role = Role(role)
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &p.Permissions); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
