// Package export stores evaluated responses outside the text output files:
// as CSV, in SQLite or MySQL through database/sql, in PostgreSQL, or in an
// Elasticsearch index.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-seisresp/resp"
	"github.com/cwbudde/algo-seisresp/resp/units"
)

// ErrUnknownExporter is returned by Open for an unsupported kind.
var ErrUnknownExporter = errors.New("export: unknown exporter")

// Row is one frequency sample of one evaluated channel epoch.
type Row struct {
	RunID      string    `json:"run_id"`
	Network    string    `json:"network"`
	Station    string    `json:"station"`
	Location   string    `json:"location"`
	Channel    string    `json:"channel"`
	EpochStart time.Time `json:"epoch_start"`
	Units      string    `json:"units"`
	Frequency  float64   `json:"frequency"`
	Real       float64   `json:"real"`
	Imag       float64   `json:"imag"`
	Amplitude  float64   `json:"amplitude"`
	// Phase in degrees.
	Phase float64 `json:"phase"`
}

// Exporter consumes rows until the channel is closed.
type Exporter interface {
	Write(context.Context, <-chan Row) error
}

// NewRunID returns a fresh identifier grouping the rows of one evaluation run.
func NewRunID() string {
	return uuid.NewString()
}

// Rows flattens res into rows tagged with runID.
func Rows(res *resp.Result, runID string) []Row {
	out := make([]Row, len(res.Frequencies))
	unit := res.Units.String()
	if res.Units == units.Default {
		unit = res.InputUnit.String()
	}
	for i, f := range res.Frequencies {
		v := res.Values[i]
		out[i] = Row{
			RunID:      runID,
			Network:    res.Epoch.Network,
			Station:    res.Epoch.Station,
			Location:   res.Epoch.Location,
			Channel:    res.Epoch.Channel,
			EpochStart: res.Epoch.Start,
			Units:      unit,
			Frequency:  f,
			Real:       real(v),
			Imag:       imag(v),
			Amplitude:  cmplx.Abs(v),
			Phase:      cmplx.Phase(v) * 180 / math.Pi,
		}
	}
	return out
}

// Stream sends the rows of every result on the returned channel, which is
// closed when all rows are sent or ctx is done.
func Stream(ctx context.Context, results []*resp.Result, runID string) <-chan Row {
	ch := make(chan Row)
	go func() {
		defer close(ch)
		for _, res := range results {
			for _, row := range Rows(res, runID) {
				select {
				case ch <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}

// Results writes results through e under a single run id.
func Results(ctx context.Context, e Exporter, results []*resp.Result, runID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return e.Write(ctx, Stream(ctx, results, runID))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the exporter of the given kind:
//
//	csv       target is a file path, "" or "-" for stdout
//	sqlite    target is a database file
//	mysql     target is a DSN such as user:pass@tcp(host:3306)/db
//	postgres  target is a connection URL
//	elastic   target is a comma separated list of endpoint URLs
//
// The returned closer releases the underlying file or connection.
func Open(ctx context.Context, kind, target string) (Exporter, io.Closer, error) {
	switch strings.ToLower(kind) {
	case "csv":
		return openCSV(target)
	case "sqlite", "sqlite3":
		db, err := OpenSQLite(target)
		if err != nil {
			return nil, nil, err
		}
		return &SQL{DB: db, Dialect: SQLite}, db, nil
	case "mysql":
		db, err := OpenMySQL(target)
		if err != nil {
			return nil, nil, err
		}
		return &SQL{DB: db, Dialect: MySQL}, db, nil
	case "postgres", "postgresql", "pg":
		p, err := NewPostgres(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case "elastic", "elasticsearch":
		e, err := NewElastic(target)
		if err != nil {
			return nil, nil, err
		}
		return e, nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownExporter, kind)
}
