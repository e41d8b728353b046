package state

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"cssnest/config"
)

// newLocalEnv creates a new LocalEnv instance with default values. Log stays
// nil until Initialize succeeds.
func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now()}
}

// Initialize loads configuration from configFile (defaults when empty),
// prepares debug report when requested and builds logger.
func (e *LocalEnv) Initialize(configFile string, debug bool) error {
	var err error

	if e.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if debug {
		if e.Rpt, err = e.Cfg.Reporting.Prepare(); err != nil {
			return fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			if data, err := config.Dump(e.Cfg); err == nil {
				e.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	log, err := e.Cfg.Logging.Prepare(e.Rpt)
	if err != nil {
		return fmt.Errorf("unable to prepare logs: %w", err)
	}
	e.Log = log
	e.Log.Debug("Environment initialized", zap.Bool("debug", debug), zap.String("config", configFile))
	return nil
}
