// Package stream turns a producer goroutine into an ordered byte stream.
//
// A producer writes RESP text (for example the output of a StationXML
// converter) into a pipe while the parser reads from the other end. A
// producer failure is reported by exactly one Read, after all data written
// before it, and every later Read returns io.EOF.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// ErrProducer marks errors raised by the producing side of a stream.
var ErrProducer = errors.New("stream: producer failed")

// ProducerError wraps the error a producer returned.
type ProducerError struct {
	Err error
}

func (e *ProducerError) Error() string {
	return "stream: producer failed: " + e.Err.Error()
}

func (e *ProducerError) Unwrap() []error { return []error{ErrProducer, e.Err} }

// Producer writes a stream to w. It should return promptly once ctx is done.
type Producer func(ctx context.Context, w io.Writer) error

// Reader is the consuming end of a produced stream.
type Reader struct {
	pr     *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	finished bool
}

// Produce starts p on its own goroutine and returns the reading end.
// Callers must Close the reader.
func Produce(ctx context.Context, p Producer) *Reader {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	r := &Reader{pr: pr, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		err := p(ctx, pw)
		pw.CloseWithError(err)
	}()
	return r
}

// Read reads produced bytes. The producer's error, if any, is returned
// once as a *ProducerError; afterwards Read returns io.EOF.
func (r *Reader) Read(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return 0, io.EOF
	}
	n, err := r.pr.Read(b)
	if err == nil {
		return n, nil
	}
	r.finished = true
	if errors.Is(err, io.EOF) {
		return n, io.EOF
	}
	return n, &ProducerError{Err: err}
}

// Close cancels the producer, unblocks it and waits for it to return.
func (r *Reader) Close() error {
	r.cancel()
	err := r.pr.Close()
	<-r.done
	return err
}

// Command returns a producer that runs an external program and streams its
// standard output. A non-zero exit becomes the producer error, carrying the
// program's standard error text.
func Command(name string, args ...string) Producer {
	return func(ctx context.Context, w io.Writer) error {
		cmd := exec.CommandContext(ctx, name, args...)
		var stderr bytes.Buffer
		cmd.Stdout = w
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("%s: %w: %s", name, err, msg)
			}
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}
