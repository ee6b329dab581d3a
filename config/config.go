package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/healthagg/cache"
	"github.com/jonwraymond/healthagg/health"
	"github.com/jonwraymond/healthagg/observe"
	"github.com/jonwraymond/healthagg/registry"
	"github.com/jonwraymond/healthagg/resilience"
	"github.com/jonwraymond/healthagg/secret"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultListen        = ":8080"
	DefaultProbeTimeout  = resilience.DefaultTimeout
	DefaultHealthyStatus = health.DefaultHealthyStatus
	DefaultUserAgent     = "healthagg/1.0"
	DefaultServiceName   = "healthagg"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the top-level configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Probe configures how individual services are probed.
	Probe ProbeConfig `yaml:"probe"`

	// Policy names the aggregation policy: three-tier | binary.
	Policy string `yaml:"policy"`

	// ReportCacheTTL keeps reports for reuse. Zero disables the cache.
	ReportCacheTTL time.Duration `yaml:"report_cache_ttl"`

	// Watch reloads services when the file changes.
	Watch bool `yaml:"watch"`

	// Observe configures logging, tracing and metrics.
	Observe observe.Config `yaml:"observe"`

	// Services seeds the registry, in document order.
	Services Services `yaml:"services"`
}

// ProbeConfig holds per-probe settings.
type ProbeConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	HealthyStatus  int           `yaml:"healthy_status"`
	UserAgent      string        `yaml:"user_agent"`
	MaxConcurrency int           `yaml:"max_concurrency"`
}

// Services is an ordered list of registry entries decoded from a YAML mapping.
type Services []registry.Entry

// UnmarshalYAML decodes a name: address mapping keeping document order.
func (s *Services) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: services must be a mapping of name to address", node.Line)
	}

	out := make([]registry.Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: service %q: address must be a string", value.Line, key.Value)
		}
		out = append(out, registry.Entry{Name: key.Value, Address: value.Value})
	}
	*s = out
	return nil
}

// MarshalYAML encodes the services as an ordered mapping.
func (s Services) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range s {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Address},
		)
	}
	return node, nil
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config data.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := expandNode(&doc); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Defaults()
	if doc.Kind != 0 {
		if err := doc.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Listen: DefaultListen,
		Probe: ProbeConfig{
			Timeout:       DefaultProbeTimeout,
			HealthyStatus: DefaultHealthyStatus,
			UserAgent:     DefaultUserAgent,
		},
		Policy: health.PolicyThreeTier.String(),
		Observe: observe.Config{
			ServiceName: DefaultServiceName,
			Tracing:     observe.TracingConfig{Exporter: "stdout", SamplePct: 1.0},
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// DefaultServices returns the services monitored when no config file is
// given.
func DefaultServices() Services {
	return Services{
		{Name: "github_api", Address: "https://api.github.com"},
		{Name: "httpbin_ok", Address: "https://httpbin.org/status/200"},
		{Name: "httpbin_fail", Address: "https://httpbin.org/status/500"},
	}
}

// Validate checks required fields and structural constraints.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen is required", ErrInvalidConfig)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("%w: probe.timeout must be positive", ErrInvalidConfig)
	}
	if c.Probe.HealthyStatus < 100 || c.Probe.HealthyStatus > 599 {
		return fmt.Errorf("%w: probe.healthy_status %d is not an HTTP status code", ErrInvalidConfig, c.Probe.HealthyStatus)
	}
	if c.Probe.MaxConcurrency < 0 {
		return fmt.Errorf("%w: probe.max_concurrency must not be negative", ErrInvalidConfig)
	}
	if _, err := health.ParsePolicy(c.Policy); err != nil {
		return fmt.Errorf("%w: policy: %w", ErrInvalidConfig, err)
	}
	if c.ReportCacheTTL < 0 {
		return fmt.Errorf("%w: report_cache_ttl must not be negative", ErrInvalidConfig)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %w", ErrInvalidConfig, err)
	}

	seen := make(map[string]int, len(c.Services))
	for i, e := range c.Services {
		if j, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: services: %q listed twice (entries %d and %d)", ErrInvalidConfig, e.Name, j, i)
		}
		seen[e.Name] = i
		if err := health.ValidateEntry(e); err != nil {
			return fmt.Errorf("%w: services: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// AggregationPolicy returns the parsed policy. Call after Validate.
func (c *Config) AggregationPolicy() health.Policy {
	p, _ := health.ParsePolicy(c.Policy)
	return p
}

// ProberConfig returns the HTTP prober settings.
func (c *Config) ProberConfig() health.HTTPProberConfig {
	return health.HTTPProberConfig{
		Timeout:       c.Probe.Timeout,
		HealthyStatus: c.Probe.HealthyStatus,
		UserAgent:     c.Probe.UserAgent,
	}
}

// CachePolicy returns the report cache policy.
func (c *Config) CachePolicy() cache.Policy {
	return cache.Policy{TTL: c.ReportCacheTTL}
}

// expandNode expands ${VAR} references in every scalar value. Mapping keys
// are left as written.
func expandNode(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		v, err := secret.ExpandEnvStrict(n.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		n.Value = v
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			if err := expandNode(n.Content[i]); err != nil {
				return err
			}
		}
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if err := expandNode(c); err != nil {
				return err
			}
		}
	}
	return nil
}
