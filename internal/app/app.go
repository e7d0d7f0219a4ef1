package app

import (
	"fmt"
	"io"

	"github.com/multimediallc/mixedcallstack/internal/config"
	"github.com/multimediallc/mixedcallstack/internal/discovery"
	"github.com/multimediallc/mixedcallstack/pkg/pmip"
)

// OutputData holds what a host adapter writes back after a run
type OutputData struct {
	Frames   []string   `json:"frames"`
	Resolved int        `json:"resolved"`
	Files    []string   `json:"files"`
	Stats    pmip.Stats `json:"stats"`
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
}

// Config holds the application configuration
type Config struct {
	PID int
	// ConfigDir holds mixedcallstack.toml; empty searches the user config folders
	ConfigDir string
	// SearchDir overrides the configured side file directory when set
	SearchDir     string
	Verbose       bool
	InfoBuffer    io.Writer
	WarningBuffer io.Writer
}

// App represents the application with its dependencies
type App struct {
	Conf       *config.Config
	config     *Config
	resolver   *pmip.Resolver
	filter     *Filter
	discoverer Discoverer
}

// New creates a new App instance with the given configuration
func New(cfg Config) (*App, error) {
	if cfg.PID <= 0 {
		return nil, fmt.Errorf("invalid pid: %d", cfg.PID)
	}
	if cfg.InfoBuffer == nil {
		cfg.InfoBuffer = io.Discard
	}
	if cfg.WarningBuffer == nil {
		cfg.WarningBuffer = io.Discard
	}
	app := &App{
		config:   &cfg,
		resolver: pmip.NewResolver(pmip.WithWarningWriter(cfg.WarningBuffer)),
	}
	return app, nil
}

func (a *App) printDebug(format string, args ...interface{}) {
	if a.config.Verbose {
		_, _ = fmt.Fprintf(a.config.InfoBuffer, format, args...)
	}
}

func (a *App) printWarn(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.config.WarningBuffer, format, args...)
}

// Run loads the configuration and resolves every frame of one stack walk
func (a *App) Run(frames []Frame) (*OutputData, error) {
	conf, err := config.Load(a.config.ConfigDir)
	if err != nil {
		a.printWarn("Error reading %s - using default config\n", config.FileName)
	}
	if a.config.SearchDir != "" {
		conf.SearchDir = a.config.SearchDir
	}
	a.Conf = conf
	a.printDebug("Searching %s for %s\n", conf.SearchDir, discovery.Pattern(conf.FilePrefix, a.config.PID))

	if a.discoverer == nil {
		a.discoverer = globDiscoverer{dir: conf.SearchDir, prefix: conf.FilePrefix, warningWriter: a.config.WarningBuffer}
	}
	a.filter = NewFilter(conf, a.resolver, a.discoverer, a.config.WarningBuffer)
	defer a.filter.OnLoadComplete()

	// frames handed over by a host adapter always come from a live process
	for _, frame := range frames {
		if frame.Module != "" {
			a.filter.OnModuleLoad(frame.Module, false)
		}
	}
	if !a.filter.Enabled() {
		a.printDebug("No runtime module in the stack, frames are passed through\n")
	}

	output := &OutputData{Frames: make([]string, 0, len(frames))}
	for _, frame := range frames {
		result := a.filter.FilterFrame(a.config.PID, frame)
		if result.Resolved {
			output.Resolved++
			a.printDebug("%016X => %s\n", frame.Address, result.Name)
		}
		output.Frames = append(output.Frames, result.String())
	}
	output.Files = a.filter.Files()
	output.Stats = a.resolver.Stats()

	if len(output.Files) == 0 {
		output.Message = fmt.Sprintf("No side files found for process %d in %s", a.config.PID, conf.SearchDir)
		a.printWarn("WARNING: %s\n", output.Message)
		return output, nil
	}
	output.Success = true
	output.Message = fmt.Sprintf("Resolved %d of %d frames", output.Resolved, len(frames))
	return output, nil
}
