// Package config loads the process settings from the environment and an
// optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"arrow-spatial/pkg/errkind"

	"github.com/joho/godotenv"
)

type Config struct {
	RESTPort   int
	FlightPort int
	// DataDir is where oversized exchange uploads spill to parquet.
	DataDir    string
	Partitions int
	BatchSize  int64
	SpillRows  int64
	LogLevel   string
	LogFormat  string
	// DuckDBPath is empty for an in-memory database.
	DuckDBPath string
}

func Default() Config {
	return Config{
		RESTPort:   8080,
		FlightPort: 50051,
		DataDir:    os.TempDir(),
		Partitions: 4,
		BatchSize:  10000,
		SpillRows:  1000000,
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// Load reads the given env files (".env" when none are named) and then
// the SPATIAL_* variables. A missing env file is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, errkind.Wrap(errkind.Internal, err, "failed to load env file %s", f)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from lookup, falling back to Default.
func FromEnv(lookup func(string) string) (Config, error) {
	cfg := Default()

	ints := []struct {
		key string
		dst *int
	}{
		{"SPATIAL_REST_PORT", &cfg.RESTPort},
		{"SPATIAL_FLIGHT_PORT", &cfg.FlightPort},
		{"SPATIAL_PARTITIONS", &cfg.Partitions},
	}
	for _, v := range ints {
		if s := strings.TrimSpace(lookup(v.key)); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return Config{}, errkind.New(errkind.Internal, "invalid %s: %q", v.key, s)
			}
			*v.dst = n
		}
	}

	int64s := []struct {
		key string
		dst *int64
	}{
		{"SPATIAL_BATCH_SIZE", &cfg.BatchSize},
		{"SPATIAL_SPILL_ROWS", &cfg.SpillRows},
	}
	for _, v := range int64s {
		if s := strings.TrimSpace(lookup(v.key)); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n <= 0 {
				return Config{}, errkind.New(errkind.Internal, "invalid %s: %q", v.key, s)
			}
			*v.dst = n
		}
	}

	if s := lookup("SPATIAL_DATA_DIR"); s != "" {
		cfg.DataDir = s
	}
	if s := lookup("SPATIAL_LOG_LEVEL"); s != "" {
		cfg.LogLevel = s
	}
	if s := lookup("SPATIAL_LOG_FORMAT"); s != "" {
		cfg.LogFormat = s
	}
	cfg.DuckDBPath = lookup("SPATIAL_DUCKDB_PATH")

	return cfg, nil
}
