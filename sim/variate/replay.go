package variate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ParseError reports a line of a replay stream that is neither a number nor
// a leading header.
type ParseError struct {
	Stream string
	Line   int
	Text   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s stream line %d: invalid value %q: %v", e.Stream, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNegative = errors.New("must be a non-negative finite number")

// replayStream reads one value per line. The first non-blank line may be a
// header; it is skipped when it does not parse as a number.
type replayStream struct {
	name    string
	scanner *bufio.Scanner
	line    int
	started bool
	done    bool
}

func newReplayStream(name string, r io.Reader) *replayStream {
	return &replayStream{name: name, scanner: bufio.NewScanner(r)}
}

func (s *replayStream) next() (float64, error) {
	if s.done {
		return 0, ErrExhausted
	}
	for s.scanner.Scan() {
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			if !s.started {
				s.started = true
				continue
			}
			return 0, &ParseError{Stream: s.name, Line: s.line, Text: text, Err: err}
		}
		s.started = true
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &ParseError{Stream: s.name, Line: s.line, Text: text, Err: errNegative}
		}
		return v, nil
	}
	if err := s.scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading %s stream: %w", s.name, err)
	}
	s.done = true
	return 0, ErrExhausted
}

// Replay serves pre-generated interarrival and service times in order.
type Replay struct {
	arrivals *replayStream
	services *replayStream
	closers  []io.Closer
}

// NewReplay creates a replay source over two newline-delimited streams.
func NewReplay(interarrivals, services io.Reader) *Replay {
	return &Replay{
		arrivals: newReplayStream("interarrival", interarrivals),
		services: newReplayStream("service", services),
	}
}

// OpenReplay opens the two files and creates a replay source over them.
// The caller must Close the returned source.
func OpenReplay(interarrivalPath, servicePath string) (*Replay, error) {
	ia, err := os.Open(interarrivalPath)
	if err != nil {
		return nil, fmt.Errorf("opening interarrival times: %w", err)
	}
	st, err := os.Open(servicePath)
	if err != nil {
		_ = ia.Close()
		return nil, fmt.Errorf("opening service times: %w", err)
	}
	r := NewReplay(ia, st)
	r.closers = []io.Closer{ia, st}
	return r, nil
}

// NextArrivalTime implements Source.
func (r *Replay) NextArrivalTime() (float64, error) {
	return r.arrivals.next()
}

// NextServiceTime implements Source.
func (r *Replay) NextServiceTime() (float64, error) {
	return r.services.next()
}

// Close releases files opened by OpenReplay.
func (r *Replay) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// ReadValues reads every value of a newline-delimited stream, applying the
// same header and validation rules as a replay source.
func ReadValues(name string, r io.Reader) ([]float64, error) {
	s := newReplayStream(name, r)
	var values []float64
	for {
		v, err := s.next()
		if errors.Is(err, ErrExhausted) {
			return values, nil
		}
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
}
