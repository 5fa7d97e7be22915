package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createSession = `-- name: CreateSession :exec
insert into session (id, username, authorized_id, cookie, created_at, last_used)
values (?, ?, ?, ?, ?, ?)
`

type CreateSessionParams struct {
	ID           string
	Username     string
	AuthorizedID string
	Cookie       []byte
	CreatedAt    int64
	LastUsed     int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, createSession,
		arg.ID,
		arg.Username,
		arg.AuthorizedID,
		arg.Cookie,
		arg.CreatedAt,
		arg.LastUsed,
	)
	return err
}

const getSession = `-- name: GetSession :one
select id, username, authorized_id, cookie, created_at, last_used from session where id = ?
`

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	var i Session
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.AuthorizedID,
		&i.Cookie,
		&i.CreatedAt,
		&i.LastUsed,
	)
	return i, err
}

const updateSessionCookie = `-- name: UpdateSessionCookie :exec
update session set cookie = ?, last_used = ? where id = ?
`

type UpdateSessionCookieParams struct {
	Cookie   []byte
	LastUsed int64
	ID       string
}

func (q *Queries) UpdateSessionCookie(ctx context.Context, arg UpdateSessionCookieParams) error {
	_, err := q.db.ExecContext(ctx, updateSessionCookie, arg.Cookie, arg.LastUsed, arg.ID)
	return err
}

const deleteSession = `-- name: DeleteSession :exec
delete from session where id = ?
`

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}

const deleteSessionsBefore = `-- name: DeleteSessionsBefore :execrows
delete from session where last_used < ?
`

func (q *Queries) DeleteSessionsBefore(ctx context.Context, lastUsed int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSessionsBefore, lastUsed)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
