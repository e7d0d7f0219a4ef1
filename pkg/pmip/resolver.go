package pmip

import (
	"io"

	"github.com/multimediallc/mixedcallstack/pkg/ranges"
)

// Resolver maps instruction pointers to the descriptions published in side
// files. It has no internal locking; embedders that share one across
// goroutines must guard it with a single mutex.
type Resolver struct {
	ingestor *Ingestor
}

type options struct {
	warningWriter io.Writer
}

type Option func(*options)

// WithWarningWriter sets where skipped lines and disposals are reported.
func WithWarningWriter(w io.Writer) Option {
	return func(o *options) {
		o.warningWriter = w
	}
}

func NewResolver(opts ...Option) *Resolver {
	o := options{warningWriter: io.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	return &Resolver{ingestor: NewIngestor(o.warningWriter)}
}

// RegisterFile tracks a side file. On failure every tracked file is dropped.
func (r *Resolver) RegisterFile(path string) error {
	return r.ingestor.Register(path)
}

// Reset forgets every tracked file and interval.
func (r *Resolver) Reset() error {
	return r.ingestor.DisposeAll()
}

// Refresh picks up lines appended since the last call and sorts the indexes.
func (r *Resolver) Refresh() error {
	if err := r.ingestor.Poll(); err != nil {
		return err
	}
	r.ingestor.Sort()
	return nil
}

// Flush is Refresh for files whose writers are done: an unterminated last
// line is ingested instead of held back.
func (r *Resolver) Flush() error {
	if err := r.ingestor.Flush(); err != nil {
		return err
	}
	r.ingestor.Sort()
	return nil
}

// Lookup refreshes, then searches the current index and falls back to the
// legacy one. A refresh error leaves the resolver empty.
func (r *Resolver) Lookup(addr uint64) (ranges.Interval, bool, error) {
	if err := r.Refresh(); err != nil {
		return ranges.Interval{}, false, err
	}
	if iv, ok := r.ingestor.current.Find(addr); ok {
		return iv, true, nil
	}
	if iv, ok := r.ingestor.legacy.Find(addr); ok {
		return iv, true, nil
	}
	return ranges.Interval{}, false, nil
}

func (r *Resolver) Resolve(addr uint64) (string, bool, error) {
	iv, ok, err := r.Lookup(addr)
	if !ok {
		return "", false, err
	}
	return iv.Name, true, nil
}

func (r *Resolver) Paths() []string {
	return r.ingestor.Paths()
}

func (r *Resolver) Stats() Stats {
	return r.ingestor.Stats()
}
