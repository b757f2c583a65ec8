// Package config reads process configuration from the environment, with an
// optional .env file underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/warp/qb-export/generic"
)

// Source drivers.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Configuration holds everything a run or the server needs that is not a
// business rule. Business rules live in the YAML rules file.
type Configuration struct {
	SourceDriver string `env:"QB_SOURCE_DRIVER" envDefault:"csv"`    // csv | sqlite | postgres
	Source       string `env:"QB_SOURCE" envDefault:"source"`        // CSV directory, SQLite path or Postgres URL
	ExtractFile  string `env:"QB_EXTRACT_FILE" envDefault:"cobra_extract.csv"`
	OutputFile   string `env:"QB_OUTPUT_FILE" envDefault:"cobra_qb_import.csv"`
	RulesFile    string `env:"QB_RULES_FILE"`                        // empty = embedded defaults
	ArchiveDir   string `env:"QB_ARCHIVE_DIR" envDefault:"archive"`
	AsOf         string `env:"QB_AS_OF"`                             // empty = today
	RunsDB       string `env:"QB_RUNS_DB" envDefault:"qb_runs.db"`   // SQLite run history
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	Address      string `env:"ADDRESS" envDefault:":8080"`
	CORSOrigins  string `env:"CORS_ORIGINS" envDefault:"*"`
}

// Load reads the given .env files (default ".env"; missing files are
// ignored) and then parses the environment. Real environment variables
// win over .env values.
func Load(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Configuration{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the driver name and the as-of date.
func (c *Configuration) Validate() error {
	switch c.SourceDriver {
	case DriverCSV, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", generic.ErrUnknownDriver, c.SourceDriver)
	}
	if c.AsOf != "" {
		if _, err := generic.ParseDate("QB_AS_OF", c.AsOf); err != nil {
			return err
		}
	}
	return nil
}

// AsOfDate returns the configured run date, or today.
func (c *Configuration) AsOfDate() generic.Date {
	if c.AsOf == "" {
		return generic.Today()
	}
	d, err := generic.ParseDate("QB_AS_OF", c.AsOf)
	if err != nil {
		return generic.Today()
	}
	return d
}

// Origins splits CORS_ORIGINS on commas.
func (c *Configuration) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
