package gateway

const (
	defaultNamespace    = "default_kv"
	defaultMaxBodyBytes = 1 << 20
	defaultMaxInflight  = 64
)

type Config struct {
	// DefaultNamespace is applied to requests that do not name a namespace.
	DefaultNamespace string `json:"default_namespace,omitempty"`
	MaxBodyBytes     int    `json:"max_body_bytes,omitempty"`
	MaxInflight      int64  `json:"max_inflight,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		DefaultNamespace: defaultNamespace,
		MaxBodyBytes:     defaultMaxBodyBytes,
		MaxInflight:      defaultMaxInflight,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.DefaultNamespace != "" {
		c.DefaultNamespace = source.DefaultNamespace
	}
	if source.MaxBodyBytes > 0 {
		c.MaxBodyBytes = source.MaxBodyBytes
	}
	if source.MaxInflight > 0 {
		c.MaxInflight = source.MaxInflight
	}
}
