package session

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const schema = `CREATE TABLE IF NOT EXISTS web_sessions (
	id         TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// Postgres stores sessions in the web_sessions table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the sessions table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) Load(ctx context.Context, id string) (*Data, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM web_sessions WHERE id = $1 AND expires_at > NOW()`, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func (p *Postgres) Save(ctx context.Context, d *Data, ttl time.Duration) error {
	raw, err := encode(d)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO web_sessions (id, payload, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at`,
		d.ID, raw, time.Now().Add(ttl),
	)
	return err
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE id = $1`, id)
	return err
}

// PurgeExpired removes expired rows and returns how many were deleted.
func (p *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
