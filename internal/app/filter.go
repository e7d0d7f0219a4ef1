package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/multimediallc/mixedcallstack/internal/config"
	"github.com/multimediallc/mixedcallstack/internal/discovery"
)

// FrameResolver is the part of pmip.Resolver the filter needs.
type FrameResolver interface {
	RegisterFile(path string) error
	Reset() error
	Resolve(addr uint64) (string, bool, error)
}

// Discoverer lists the side files currently written for a process.
type Discoverer interface {
	Discover(pid int) ([]discovery.Name, error)
}

type globDiscoverer struct {
	dir           string
	prefix        string
	warningWriter io.Writer
}

func (g globDiscoverer) Discover(pid int) ([]discovery.Name, error) {
	return discovery.Glob(g.dir, g.prefix, pid, g.warningWriter)
}

// Filter decides which stack frames to resolve and resolves them. Frames it
// does not handle, or fails to resolve, come back unchanged.
type Filter struct {
	conf          *config.Config
	resolver      FrameResolver
	discoverer    Discoverer
	tracker       *discovery.Tracker
	enabled       bool
	warningWriter io.Writer
}

func NewFilter(conf *config.Config, resolver FrameResolver, discoverer Discoverer, warningWriter io.Writer) *Filter {
	if warningWriter == nil {
		warningWriter = io.Discard
	}
	return &Filter{
		conf:          conf,
		resolver:      resolver,
		discoverer:    discoverer,
		tracker:       discovery.NewTracker(),
		enabled:       conf.Filter.Enabled,
		warningWriter: warningWriter,
	}
}

func (f *Filter) printWarn(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(f.warningWriter, format, args...)
}

func (f *Filter) Enabled() bool {
	return f.enabled
}

// OnModuleLoad turns the filter on once a managed runtime module shows up in
// a live process.
func (f *Filter) OnModuleLoad(name string, minidump bool) {
	if minidump {
		return
	}
	for _, trigger := range f.conf.Filter.ModuleTriggers {
		if strings.Contains(name, trigger) {
			f.enabled = true
			return
		}
	}
}

// OnLoadComplete drops everything read for a previous debugging session.
func (f *Filter) OnLoadComplete() {
	f.reset()
}

func (f *Filter) reset() {
	if err := f.resolver.Reset(); err != nil {
		f.printWarn("WARNING: resetting resolver: %v\n", err)
	}
	f.tracker.Reset()
}

func (f *Filter) FilterFrame(pid int, frame Frame) Result {
	passthrough := Result{Frame: frame}
	if frame.Module != "" {
		return passthrough
	}
	if !f.enabled {
		return passthrough
	}
	if !frame.MainThread && !f.conf.Filter.AllThreads {
		return passthrough
	}

	if !f.refresh(pid) {
		return passthrough
	}
	name, ok, err := f.resolver.Resolve(frame.Address)
	if err != nil {
		f.printWarn("WARNING: resolving %016X: %v\n", frame.Address, err)
		// the resolver dropped its state; rediscover on the next frame
		f.tracker.Reset()
		return passthrough
	}
	if !ok {
		return passthrough
	}
	return Result{Frame: frame, Name: name, Resolved: true}
}

// refresh registers the newest side file of every domain of pid. It reports
// false when nothing usable is registered.
func (f *Filter) refresh(pid int) bool {
	names, err := f.discoverer.Discover(pid)
	if err != nil {
		f.printWarn("WARNING: discovering side files for %d: %v\n", pid, err)
		return false
	}
	if len(names) == 0 {
		return false
	}
	if f.tracker.Update(names) {
		if err := f.resolver.Reset(); err != nil {
			f.printWarn("WARNING: resetting resolver: %v\n", err)
		}
	}
	for _, path := range f.tracker.Paths() {
		if err := f.resolver.RegisterFile(path); err != nil {
			f.printWarn("WARNING: Unable to read file: %s: %v\n", path, err)
			f.tracker.Reset()
			return false
		}
	}
	return true
}

// Files returns the side files currently in use.
func (f *Filter) Files() []string {
	return f.tracker.Paths()
}
