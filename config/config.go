package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.miragespace.co/nskv"
	"go.miragespace.co/nskv/gateway"
)

const (
	defaultListen          = ":8081"
	defaultStoreURI        = "memory"
	defaultLogLevel        = "info"
	defaultShutdownTimeout = Duration(10 * time.Second)
)

// Duration is a time.Duration that reads and writes as a Go duration string.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type LogConfig struct {
	Level       string `json:"level,omitempty"`
	Development bool   `json:"development,omitempty"`
}

type Config struct {
	Listen string `json:"listen,omitempty"`
	// Stores maps a store name to its backing URI. The store named
	// gateway.DefaultStore is served at the root.
	Stores          map[string]string `json:"stores,omitempty"`
	Gateway         gateway.Config    `json:"gateway"`
	Log             LogConfig         `json:"log"`
	ShutdownTimeout Duration          `json:"shutdown_timeout,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Listen: defaultListen,
		Stores: map[string]string{
			gateway.DefaultStore: defaultStoreURI,
		},
		Gateway: gateway.DefaultConfig(),
		Log: LogConfig{
			Level: defaultLogLevel,
		},
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// Merge applies non-zero values from source into c. Stores named in source
// replace or add to the stores in c.
func (c *Config) Merge(source *Config) {
	if source.Listen != "" {
		c.Listen = source.Listen
	}

	if len(source.Stores) > 0 {
		if c.Stores == nil {
			c.Stores = make(map[string]string, len(source.Stores))
		}
		for name, uri := range source.Stores {
			c.Stores[name] = uri
		}
	}

	c.Gateway.Merge(&source.Gateway)

	if source.Log.Level != "" {
		c.Log.Level = source.Log.Level
	}
	if source.Log.Development {
		c.Log.Development = true
	}

	if source.ShutdownTimeout > 0 {
		c.ShutdownTimeout = source.ShutdownTimeout
	}
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	if _, ok := c.Stores[gateway.DefaultStore]; !ok {
		return fmt.Errorf("store %q must be configured", gateway.DefaultStore)
	}

	for name, uri := range c.Stores {
		if name == "" || uri == "" {
			return fmt.Errorf("store name and uri cannot be empty: %q=%q", name, uri)
		}
	}

	if !nskv.ValidNamespace(c.Gateway.DefaultNamespace) {
		return fmt.Errorf("invalid default namespace %q", c.Gateway.DefaultNamespace)
	}

	return nil
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
