package pmip

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/multimediallc/mixedcallstack/pkg/ranges"
)

// Stats summarises what an Ingestor currently holds.
type Stats struct {
	Files   int `json:"files"`
	Current int `json:"current"`
	Legacy  int `json:"legacy"`
	Skipped int `json:"skipped"`
}

// Ingestor owns the read handles of every tracked side file and the two range
// indexes fed from them. It is not safe for concurrent use.
//
// Any header, parse or read failure disposes of all state: callers register
// their files again from scratch afterwards.
type Ingestor struct {
	files         map[string]*sideFile
	order         []string
	current       ranges.Index
	legacy        ranges.Index
	skipped       int
	warningWriter io.Writer
}

func NewIngestor(warningWriter io.Writer) *Ingestor {
	if warningWriter == nil {
		warningWriter = io.Discard
	}
	return &Ingestor{
		files:         make(map[string]*sideFile),
		warningWriter: warningWriter,
	}
}

// Register starts tracking path and ingests everything it holds so far. An
// already tracked path is only polled.
func (in *Ingestor) Register(path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if sf, ok := in.files[path]; ok {
		return in.poll(sf)
	}

	sf, err := openSideFile(path)
	if err != nil {
		in.fail(err)
		return err
	}
	in.files[path] = sf
	in.order = append(in.order, path)
	return in.poll(sf)
}

// Poll ingests lines appended to every tracked file since the previous poll.
func (in *Ingestor) Poll() error {
	for _, path := range in.order {
		if err := in.poll(in.files[path]); err != nil {
			return err
		}
	}
	return nil
}

func (in *Ingestor) poll(sf *sideFile) error {
	for {
		line, ok, err := sf.next()
		if err != nil {
			err = &LineError{Path: sf.path, Line: sf.line + 1, Err: err}
			in.fail(err)
			return err
		}
		if !ok {
			return nil
		}
		if err := in.ingest(sf, line); err != nil {
			return err
		}
	}
}

// Flush ingests whatever follows the last line terminator of every tracked
// file. Call it once the writers are done, e.g. for saved dumps; a live
// writer may still be completing that line.
func (in *Ingestor) Flush() error {
	if err := in.Poll(); err != nil {
		return err
	}
	for _, path := range in.order {
		sf := in.files[path]
		line, ok := sf.flush()
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(in.warningWriter, "WARNING: %s:%d: last line has no line terminator\n", sf.path, sf.line)
		if err := in.ingest(sf, line); err != nil {
			return err
		}
	}
	return nil
}

func (in *Ingestor) ingest(sf *sideFile, line string) error {
	rec, err := ParseLine(line)
	if err != nil {
		err = &LineError{Path: sf.path, Line: sf.line, Err: err}
		in.fail(err)
		return err
	}
	switch rec.Kind {
	case KindCurrent:
		in.current.Append(rec.Interval)
	case KindLegacy:
		in.legacy.Append(rec.Interval)
	default:
		in.skipped++
		if line != "" {
			_, _ = fmt.Fprintf(in.warningWriter, "WARNING: %s:%d: skipping line with unexpected shape: %q\n", sf.path, sf.line, line)
		}
	}
	return nil
}

func (in *Ingestor) fail(cause error) {
	_, _ = fmt.Fprintf(in.warningWriter, "WARNING: disposing side file state: %v\n", cause)
	if err := in.DisposeAll(); err != nil {
		_, _ = fmt.Fprintf(in.warningWriter, "WARNING: %v\n", err)
	}
}

// Sort prepares both indexes for lookups.
func (in *Ingestor) Sort() {
	in.current.Sort()
	in.legacy.Sort()
}

// Intervals returns a sorted copy of the intervals of the given kind.
func (in *Ingestor) Intervals(kind Kind) []ranges.Interval {
	in.Sort()
	switch kind {
	case KindCurrent:
		return in.current.All()
	case KindLegacy:
		return in.legacy.All()
	}
	return nil
}

// Paths returns the tracked paths in registration order.
func (in *Ingestor) Paths() []string {
	return slices.Clone(in.order)
}

// Header returns the validated header of a tracked path.
func (in *Ingestor) Header(path string) (Header, bool) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sf, ok := in.files[path]
	if !ok {
		return Header{}, false
	}
	return sf.header, true
}

func (in *Ingestor) Stats() Stats {
	return Stats{
		Files:   len(in.order),
		Current: in.current.Len(),
		Legacy:  in.legacy.Len(),
		Skipped: in.skipped,
	}
}

// DisposeAll closes every handle and empties both indexes.
func (in *Ingestor) DisposeAll() error {
	var errs []error
	for _, path := range in.order {
		if err := in.files[path].close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", path, err))
		}
	}
	clear(in.files)
	in.order = nil
	in.current.Reset()
	in.legacy.Reset()
	in.skipped = 0
	return errors.Join(errs...)
}
