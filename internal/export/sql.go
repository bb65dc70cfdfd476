package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"
)

// Dialect selects the table definition of a SQL exporter.
type Dialect int

const (
	SQLite Dialect = iota
	MySQL
)

func (d Dialect) String() string {
	if d == MySQL {
		return "mysql"
	}
	return "sqlite"
}

const (
	rowCountInfo = 1000

	sqliteCreateTableTmpl = `CREATE TABLE IF NOT EXISTS responses (
		id          INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		network     TEXT,
		station     TEXT NOT NULL,
		location    TEXT,
		channel     TEXT NOT NULL,
		epoch_start INTEGER,
		units       TEXT,
		frequency   REAL,
		re          REAL,
		im          REAL,
		amplitude   REAL,
		phase       REAL
	);`
	mysqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS responses (
		id          BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		run_id      CHAR(36) NOT NULL,
		network     VARCHAR(8),
		station     VARCHAR(16) NOT NULL,
		location    VARCHAR(8),
		channel     VARCHAR(8) NOT NULL,
		epoch_start BIGINT,
		units       VARCHAR(32),
		frequency   DOUBLE,
		re          DOUBLE,
		im          DOUBLE,
		amplitude   DOUBLE,
		phase       DOUBLE
	);`
	sqlInsertRowTmpl = `INSERT INTO responses (
		run_id,
		network,
		station,
		location,
		channel,
		epoch_start,
		units,
		frequency,
		re,
		im,
		amplitude,
		phase
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
)

// SQL stores rows in a "responses" table through database/sql. Epoch
// starts are stored as Unix milliseconds.
type SQL struct {
	DB      *sql.DB
	Dialect Dialect
}

func (s *SQL) Write(ctx context.Context, rows <-chan Row) error {
	if err := s.createTableIfNotExists(ctx); err != nil {
		return fmt.Errorf("export: unable to create table: %w", err)
	}
	stmt, err := s.DB.PrepareContext(ctx, sqlInsertRowTmpl)
	if err != nil {
		return fmt.Errorf("export: prepare insert: %w", err)
	}
	defer stmt.Close()

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for r := range rows {
		counts["total"]++
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Network, r.Station, r.Location, r.Channel,
			r.EpochStart.UnixMilli(), r.Units, r.Frequency, r.Real, r.Imag, r.Amplitude, r.Phase); err != nil {
			counts["error"]++
			glog.Warningf("error storing in %s DB: %s", s.Dialect, err)
			continue
		}
		counts["success"]++
		if counts["total"]%rowCountInfo == 0 {
			glog.V(1).Infof("Row export counts: %+v", counts)
		}
	}
	glog.V(1).Infof("Row export counts: %+v", counts)

	if counts["error"] > 0 {
		return fmt.Errorf("export: %d of %d rows failed", counts["error"], counts["total"])
	}
	return ctx.Err()
}

func (s *SQL) createTableIfNotExists(ctx context.Context) error {
	tmpl := sqliteCreateTableTmpl
	if s.Dialect == MySQL {
		tmpl = mysqlCreateTableTmpl
	}
	_, err := s.DB.ExecContext(ctx, tmpl)
	return err
}
