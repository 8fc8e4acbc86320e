package questforge

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log         LogConfig         `toml:"log"`
	DB          DBConfig          `toml:"db"`
	Definitions DefinitionsConfig `toml:"definitions"`
	Spaces      struct {
		Key    string `toml:"key"`
		Secret string `toml:"secret"`
		Region string `toml:"region"`
		Bucket string `toml:"bucket"`
		Root   string `toml:"root"`
	} `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

// DefinitionsConfig controls where authored quest documents are pulled from.
// Dir points at a local directory of .toml documents; the spaces section
// enables the remote bucket source when a bucket name is set.
type DefinitionsConfig struct {
	Dir         string `toml:"dir"`
	SyncMinutes int    `toml:"sync_minutes"`
}
