package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/shibukawa/configdir"
)

const FileName = "mixedcallstack.toml"

type Config struct {
	SearchDir  string  `toml:"search_dir"`
	FilePrefix string  `toml:"file_prefix"`
	Color      bool    `toml:"color"`
	Filter     *Filter `toml:"filter"`
}

type Filter struct {
	// Enabled resolves frames without waiting for a runtime module to load.
	Enabled bool `toml:"enabled"`
	// AllThreads also resolves frames of threads other than the main thread.
	AllThreads     bool     `toml:"all_threads"`
	ModuleTriggers []string `toml:"module_triggers"`
}

func Default() *Config {
	return &Config{
		SearchDir:  os.TempDir(),
		FilePrefix: "pmip",
		Color:      false,
		Filter: &Filter{
			Enabled:        false,
			AllThreads:     false,
			ModuleTriggers: []string{"mono-2.0"},
		},
	}
}

// ReadConfig reads mixedcallstack.toml from dir. A missing file yields the
// defaults; on error the defaults are returned alongside it.
func ReadConfig(dir string) (*Config, error) {
	defaultConfig := Default()

	fileName := filepath.Join(dir, FileName)
	if _, err := os.Stat(fileName); errors.Is(err, os.ErrNotExist) {
		return defaultConfig, nil
	}
	file, err := os.ReadFile(fileName)
	if err != nil {
		return defaultConfig, err
	}
	config := Default()
	err = toml.Unmarshal(file, &config)
	if err != nil {
		return defaultConfig, err
	}
	if config.SearchDir == "" {
		config.SearchDir = defaultConfig.SearchDir
	}
	if config.FilePrefix == "" {
		config.FilePrefix = defaultConfig.FilePrefix
	}
	if config.Filter == nil {
		config.Filter = defaultConfig.Filter
	}
	if config.Filter.ModuleTriggers == nil {
		config.Filter.ModuleTriggers = defaultConfig.Filter.ModuleTriggers
	}
	return config, nil
}

// Locate returns the first user or system config folder holding
// mixedcallstack.toml, or "" when there is none.
func Locate() string {
	configDirs := configdir.New("multimediallc", "mixedcallstack")
	folder := configDirs.QueryFolderContainsFile(FileName)
	if folder == nil {
		return ""
	}
	return folder.Path
}

// Load reads the config from dir, or from the located config folder when dir
// is empty.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = Locate()
	}
	if dir == "" {
		return Default(), nil
	}
	return ReadConfig(dir)
}
