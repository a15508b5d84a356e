// Package config loads the harvester's layered configuration.
package config

import "time"

// Defaults.
const (
	DefaultStateDSN  = "sqlharvest.db"
	DefaultOutputDir = "out"
	DefaultUnitMode  = "repo"
	DefaultWorkers   = 4
	DefaultBatchSize = 50
)

// Config is the effective configuration of a run.
type Config struct {
	CorpusDir string `koanf:"corpus_dir"`
	UnitMode  string `koanf:"unit_mode"` // repo | file
	Sample    string `koanf:"sample"`    // all | <fraction> | repo:<r> | file:<f> | stmt:<f>:<i>

	Workers          int           `koanf:"workers"`
	UnitTimeout      time.Duration `koanf:"unit_timeout"`
	StatementTimeout time.Duration `koanf:"statement_timeout"`
	BatchSize        int           `koanf:"batch_size"`

	StateDSN  string `koanf:"state_dsn"`
	OutputDir string `koanf:"output_dir"`
	LogLevel  string `koanf:"log_level"` // debug | info | warn | error
	Verbose   bool   `koanf:"verbose"`
}
