package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// uniqueViolation is the Postgres error code for a duplicate key.
const uniqueViolation = "23505"

const createFramesTable = `
	CREATE TABLE IF NOT EXISTS frames (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL,
		dts TIMESTAMPTZ NOT NULL,
		src TEXT NOT NULL,
		data TEXT NOT NULL,
		is_dupe BOOLEAN NOT NULL,
		mlat BOOLEAN NOT NULL,
		icao TEXT,
		decoded JSONB NOT NULL
	)
`

const insertFrame = `
	INSERT INTO frames (
		id, type, dts, src, data, is_dupe, mlat, icao, decoded
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Postgres stores envelopes in the frames table.
type Postgres struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgres opens a connection and creates the frames table.
func NewPostgres(ctx context.Context, connStr string, logger *logrus.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	p := NewPostgresWithDB(db, logger)
	if err := p.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresWithDB creates a sink on an open database.
func NewPostgresWithDB(db *sql.DB, logger *logrus.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// Migrate creates the frames table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createFramesTable); err != nil {
		return fmt.Errorf("failed to create frames table: %w", err)
	}
	return nil
}

func (p *Postgres) Write(ctx context.Context, env Envelope) error {
	var decoded any = env.SSR
	if env.AIS != nil {
		decoded = env.AIS
	}
	doc, err := json.Marshal(decoded)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = p.db.ExecContext(ctx, insertFrame,
		env.ID, env.Type, env.DTS, env.Src, env.Data, env.IsDupe, env.MLAT,
		icaoOf(env), string(doc),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		p.logger.WithField("id", env.ID).Debug("Frame already stored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// icaoOf returns the aircraft address as hex, or NULL. Parity addresses of
// records without track state are not trusted.
func icaoOf(env Envelope) sql.NullString {
	if env.State != nil && env.State.ICAO != 0 {
		return sql.NullString{String: fmt.Sprintf("%06x", env.State.ICAO), Valid: true}
	}
	if env.SSR == nil || env.SSR.S == nil {
		return sql.NullString{}
	}
	if _, parity := env.SSR.S.ParityAddress(); parity {
		return sql.NullString{}
	}
	if icao, ok := env.SSR.ICAO(); ok {
		return sql.NullString{String: fmt.Sprintf("%06x", icao), Valid: true}
	}
	return sql.NullString{}
}
