// Package config loads the configuration file of steelersconfig.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/oddbloke/steelersconfig/internal/app"
)

// Config is the configuration of the command.
// Zero values are replaced by defaults.
type Config struct {
	// ConfigPageURL is the base URL of the settings page.
	ConfigPageURL string `yaml:"config_page_url"`
	// CallbackAddr is the local address where the settings page returns its result.
	CallbackAddr string `yaml:"callback_addr"`
	// InboxURL is where app messages are delivered to.
	InboxURL string `yaml:"inbox_url"`
	// SendTimeout limits how long a message delivery may take.
	SendTimeout time.Duration `yaml:"send_timeout"`
	// SendRetries is the number of delivery retries. Messages are not retried by default.
	SendRetries int `yaml:"send_retries"`
	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ConfigPageURL: app.ConfigPageURL,
		CallbackAddr:  "127.0.0.1:8765",
		InboxURL:      "http://127.0.0.1:8765/inbox",
		SendTimeout:   10 * time.Second,
		LogLevel:      "INFO",
	}
}

// Load reads the configuration from a YAML file at path.
// A missing file results in the default configuration.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.ConfigPageURL == "" {
		c.ConfigPageURL = d.ConfigPageURL
	}
	if c.CallbackAddr == "" {
		c.CallbackAddr = d.CallbackAddr
	}
	if c.InboxURL == "" {
		c.InboxURL = d.InboxURL
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	for _, s := range []string{c.ConfigPageURL, c.InboxURL} {
		u, err := url.Parse(s)
		if err != nil {
			return err
		}
		if !u.IsAbs() {
			return fmt.Errorf("not an absolute URL: %s", s)
		}
	}
	if c.SendRetries < 0 {
		return fmt.Errorf("invalid send_retries: %d", c.SendRetries)
	}
	if c.SendTimeout < 0 {
		return fmt.Errorf("invalid send_timeout: %s", c.SendTimeout)
	}
	return nil
}

// Save writes the configuration as YAML to path.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
