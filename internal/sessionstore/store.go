package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vtop-backend/internal/sessionstore/db"
	"vtop-backend/lib/sqliteutil"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session is an exported portal session saved under an opaque handle.
type Session struct {
	ID           string
	Username     string
	AuthorizedID string
	Cookie       []byte
	CreatedAt    time.Time
	LastUsed     time.Time
}

// Store keeps exported portal cookies so that later requests can resume a
// session without solving another captcha. Sessions unused for longer than
// ttl are treated as missing.
type Store struct {
	db  *sql.DB
	qry *db.Queries
	ttl time.Duration
	now func() time.Time
}

func NewStore(database *sql.DB, ttl time.Duration) Store {
	return Store{
		db:  database,
		qry: db.New(database),
		ttl: ttl,
		now: time.Now,
	}
}

// Open opens the sqlite database at path, ":memory:" is accepted.
func Open(path string, ttl time.Duration) (Store, error) {
	database, err := sqliteutil.OpenDB(db.Schema, path)
	if err != nil {
		return Store{}, fmt.Errorf("open session db: %w", err)
	}
	return NewStore(database, ttl), nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) Create(ctx context.Context, username, authorizedID string, cookie []byte) (string, error) {
	id := uuid.NewString()
	now := s.now().Unix()
	err := s.qry.CreateSession(ctx, db.CreateSessionParams{
		ID:           id,
		Username:     username,
		AuthorizedID: authorizedID,
		Cookie:       cookie,
		CreatedAt:    now,
		LastUsed:     now,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s Store) Get(ctx context.Context, id string) (Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, ErrNotFound
	}

	row, err := s.qry.GetSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}

	session := Session{
		ID:           row.ID,
		Username:     row.Username,
		AuthorizedID: row.AuthorizedID,
		Cookie:       row.Cookie,
		CreatedAt:    time.Unix(row.CreatedAt, 0),
		LastUsed:     time.Unix(row.LastUsed, 0),
	}
	if s.ttl > 0 && s.now().Sub(session.LastUsed) > s.ttl {
		return Session{}, ErrNotFound
	}
	return session, nil
}

// Touch stores the latest cookie of a session and marks it as used.
func (s Store) Touch(ctx context.Context, id string, cookie []byte) error {
	return s.qry.UpdateSessionCookie(ctx, db.UpdateSessionCookieParams{
		ID:       id,
		Cookie:   cookie,
		LastUsed: s.now().Unix(),
	})
}

func (s Store) Delete(ctx context.Context, id string) error {
	return s.qry.DeleteSession(ctx, id)
}

// Purge deletes every session past its ttl and returns how many were removed.
func (s Store) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	return s.qry.DeleteSessionsBefore(ctx, s.now().Add(-s.ttl).Unix())
}
