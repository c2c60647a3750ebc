// Package config loads the service configuration from a YAML file.
//
// Command-line flags are applied on top of the loaded values by the cli
// package; this package only knows about defaults and the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sverrirab/generic-rest/internal/schema"
)

// TokenEnv names the environment variable consulted when no token is
// configured.
const TokenEnv = "GENERIC_REST_TOKEN"

// Config holds every setting of the serve command.
type Config struct {
	API       string   `yaml:"api"`
	FileName  string   `yaml:"file_name"`
	Token     string   `yaml:"token"`
	StrictPut bool     `yaml:"strict_put"`
	Addr      string   `yaml:"addr"`
	Fields    []string `yaml:"fields"`
	Verbose   int      `yaml:"verbose"`
	Debug     bool     `yaml:"debug"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		API:    "/api",
		Addr:   ":5000",
		Fields: append([]string(nil), schema.DefaultFieldTokens...),
	}
}

// Normalize fills empty settings with defaults and falls back to TokenEnv
// for the token. Call it after flags have been applied.
func (c *Config) Normalize() {
	d := Default()

	if c.API == "" {
		c.API = d.API
	}
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if len(c.Fields) == 0 {
		c.Fields = d.Fields
	}
	if c.Verbose < 0 {
		c.Verbose = 0
	}
	if c.Token == "" {
		c.Token = os.Getenv(TokenEnv)
	}
}

// Load reads path over the defaults: keys missing from the file keep their
// default value. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file %s not found", path)
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
