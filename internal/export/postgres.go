package export

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgBatchRows = 1000

	pgCreateTableSQL = `
    CREATE TABLE IF NOT EXISTS responses (
        id          BIGSERIAL PRIMARY KEY,
        run_id      TEXT NOT NULL,
        network     TEXT,
        station     TEXT NOT NULL,
        location    TEXT,
        channel     TEXT NOT NULL,
        epoch_start TIMESTAMPTZ,
        units       TEXT,
        frequency   DOUBLE PRECISION,
        re          DOUBLE PRECISION,
        im          DOUBLE PRECISION,
        amplitude   DOUBLE PRECISION,
        phase       DOUBLE PRECISION
    )
`

	pgSelectRunSQL = `
    SELECT run_id, network, station, location, channel, epoch_start, units,
           frequency, re, im, amplitude, phase
    FROM responses
    WHERE run_id = $1
    ORDER BY id
`
)

var pgColumns = []string{
	"run_id", "network", "station", "location", "channel", "epoch_start",
	"units", "frequency", "re", "im", "amplitude", "phase",
}

// Postgres stores rows in PostgreSQL using COPY in batches.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates an exporter backed by a pgx pool.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("export: postgres pool: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool resources.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Write(ctx context.Context, rows <-chan Row) error {
	if _, err := p.pool.Exec(ctx, pgCreateTableSQL); err != nil {
		return fmt.Errorf("export: unable to create table: %w", err)
	}

	batch := make([][]any, 0, pgBatchRows)
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := p.pool.CopyFrom(ctx, pgx.Identifier{"responses"}, pgColumns, pgx.CopyFromRows(batch))
		if err != nil {
			return fmt.Errorf("export: copy %d rows: %w", len(batch), err)
		}
		total += int(n)
		glog.V(1).Infof("Row export counts: %d copied", total)
		batch = batch[:0]
		return nil
	}

	for r := range rows {
		batch = append(batch, []any{
			r.RunID, r.Network, r.Station, r.Location, r.Channel, r.EpochStart,
			r.Units, r.Frequency, r.Real, r.Imag, r.Amplitude, r.Phase,
		})
		if len(batch) == pgBatchRows {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return ctx.Err()
}

// Run returns the stored rows of one run in insertion order.
func (p *Postgres) Run(ctx context.Context, runID string) ([]Row, error) {
	rows, err := p.pool.Query(ctx, pgSelectRunSQL, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.RunID, &r.Network, &r.Station, &r.Location, &r.Channel, &r.EpochStart,
			&r.Units, &r.Frequency, &r.Real, &r.Imag, &r.Amplitude, &r.Phase); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
