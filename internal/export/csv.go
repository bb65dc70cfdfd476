package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
)

var csvHeader = []string{
	"RunID",
	"Network",
	"Station",
	"Location",
	"Channel",
	"EpochStart",
	"Units",
	"Frequency",
	"Real",
	"Imag",
	"Amplitude",
	"Phase",
}

// CSV writes rows as comma separated values with a header line.
type CSV struct {
	// W defaults to standard output.
	W io.Writer
}

func (c *CSV) Write(ctx context.Context, rows <-chan Row) error {
	out := c.W
	if out == nil {
		out = os.Stdout
	}
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("export: csv header: %w", err)
	}

	for r := range rows {
		if err := w.Write(csvRecord(r)); err != nil {
			glog.Warningf("error while writing CSV line: %s", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: csv flush: %w", err)
	}
	return ctx.Err()
}

func csvRecord(r Row) []string {
	start := ""
	if !r.EpochStart.IsZero() {
		start = r.EpochStart.UTC().Format(time.RFC3339)
	}
	return []string{
		r.RunID,
		r.Network,
		r.Station,
		r.Location,
		r.Channel,
		start,
		r.Units,
		formatFloat(r.Frequency),
		formatFloat(r.Real),
		formatFloat(r.Imag),
		formatFloat(r.Amplitude),
		formatFloat(r.Phase),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'E', 6, 64)
}

type fileCloser struct{ f *os.File }

func (c fileCloser) Close() error {
	if c.f == nil {
		return nil
	}
	return c.f.Close()
}

func openCSV(path string) (Exporter, io.Closer, error) {
	if path == "" || path == "-" {
		return &CSV{W: os.Stdout}, fileCloser{}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("export: %w", err)
	}
	return &CSV{W: f}, fileCloser{f}, nil
}
