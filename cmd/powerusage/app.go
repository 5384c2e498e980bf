package main

import (
	"fmt"
	"strings"

	"github.com/janekbaraniewski/powerusage/internal/archive"
	"github.com/janekbaraniewski/powerusage/internal/config"
	"github.com/janekbaraniewski/powerusage/internal/tracker"
	"github.com/rs/zerolog"
)

// app carries what every subcommand needs after flag parsing.
type app struct {
	configPath string
	dataFile   string

	cfg    config.Config
	logger zerolog.Logger
}

func (a *app) init() error {
	a.logger = newLogger()

	var (
		cfg config.Config
		err error
	)
	if strings.TrimSpace(a.configPath) == "" {
		a.configPath = config.ConfigPath()
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(a.configPath)
	}
	if err != nil {
		return fmt.Errorf("loading config %s: %w", a.configPath, err)
	}
	if strings.TrimSpace(a.dataFile) != "" {
		cfg.DataFile = a.dataFile
	}
	a.cfg = cfg

	a.logger.Debug().
		Str("config", a.configPath).
		Str("data_file", cfg.DataFile).
		Bool("archive", cfg.Archive.Enabled).
		Msg("config loaded")
	return nil
}

// openArchive returns nil when the archive is disabled.
func (a *app) openArchive() (*archive.Store, error) {
	if !a.cfg.Archive.Enabled {
		return nil, nil
	}
	store, err := archive.OpenStore(a.cfg.Archive.Path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openTracker loads the data file and attaches the cycle archive. Callers
// must Close the tracker.
func (a *app) openTracker() (*tracker.Tracker, error) {
	opts := tracker.Options{
		Path:   a.cfg.DataFile,
		Logger: &a.logger,
	}
	store, err := a.openArchive()
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts.Archiver = store
	}

	tr, err := tracker.Open(opts)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return tr, nil
}
