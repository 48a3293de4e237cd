package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile loads the environment configuration and overlays the YAML document
// at path. Keys absent from the file keep their environment or default value.
func LoadFile(path string) (*Config, error) {
	c := Load()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := c.Overlay(data); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return c, nil
}

// Overlay decodes a YAML document on top of c. Unknown keys are rejected.
func (c *Config) Overlay(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return err
	}
	c.LogLevel = strings.ToUpper(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	c.Permissions.Backend = strings.ToLower(c.Permissions.Backend)
	return nil
}
