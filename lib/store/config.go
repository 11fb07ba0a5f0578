package store

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ValentinKolb/anyKV/lib/common"
	"github.com/ValentinKolb/anyKV/lib/serialize"
	"gopkg.in/yaml.v3"
)

// Config is the immutable configuration of a store.
// Use DefaultConfig to get a config with the system defaults.
type Config struct {
	// URI is the base uri of the store (file://, memory://, sqlite://, redis://, s3://, *.zip, or a plain path)
	URI string `yaml:"uri" json:"uri"`
	// Mode is the default serialization mode
	Mode serialize.Mode `yaml:"serialization_mode" json:"serialization_mode"`
	// Serialize, Deserialize and Model are the default serialization hooks
	Serialize   serialize.SerializeFunc   `yaml:"-" json:"-"`
	Deserialize serialize.DeserializeFunc `yaml:"-" json:"-"`
	Model       serialize.Model           `yaml:"-" json:"-"`
	// DefaultTTL is the time to live in seconds of written values, 0 disables it
	DefaultTTL int64 `yaml:"default_ttl" json:"default_ttl"`
	// RaiseOnMissing makes reads of missing keys return ErrNotFound instead of a nil value
	RaiseOnMissing bool `yaml:"raise_on_missing" json:"raise_on_missing"`
	// ReadOnly rejects all writes with ErrReadOnly
	ReadOnly bool `yaml:"readonly" json:"readonly"`
	// BackendConfig holds driver specific settings (sql_table, redis_prefix, s3_endpoint, ...)
	BackendConfig map[string]string `yaml:"backend_config" json:"backend_config"`
}

// DefaultConfig returns a config for uri with the system defaults
func DefaultConfig(uri string) Config {
	return Config{
		URI:            uri,
		Mode:           serialize.ModeAuto,
		RaiseOnMissing: true,
	}
}

// FromSettings returns the config of the default store described by the settings
func FromSettings(s *common.Settings) (Config, error) {
	mode, err := serialize.ParseMode(s.SerializationMode)
	if err != nil {
		return Config{}, err
	}
	return Config{
		URI:            s.URI,
		Mode:           mode,
		DefaultTTL:     int64(s.DefaultTTL.Seconds()),
		RaiseOnMissing: s.RaiseOnMissing,
		BackendConfig:  s.BackendConfig(),
	}, nil
}

// LoadConfigFile reads a store config from a yaml (or json) file.
// Fields missing in the file keep their defaults.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read store config: %w", err)
	}
	cfg := DefaultConfig("")
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse store config %s: %w", path, err)
	}
	if cfg.URI == "" {
		return Config{}, fmt.Errorf("store config %s: uri is required", path)
	}
	mode, err := serialize.ParseMode(string(cfg.Mode))
	if err != nil {
		return Config{}, fmt.Errorf("store config %s: %w", path, err)
	}
	cfg.Mode = mode
	return cfg, nil
}

// String returns a formatted string representation of the configuration
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Store")
	addField("URI", c.URI)
	addField("Read Only", fmt.Sprintf("%t", c.ReadOnly))
	addField("Raise On Missing", fmt.Sprintf("%t", c.RaiseOnMissing))
	addField("Default TTL", fmt.Sprintf("%d sec", c.DefaultTTL))

	addSection("Serialization")
	addField("Mode", string(c.Mode))
	addField("Serialize Func", fmt.Sprintf("%t", c.Serialize != nil))
	addField("Deserialize Func", fmt.Sprintf("%t", c.Deserialize != nil))
	addField("Model", fmt.Sprintf("%t", c.Model != nil))

	if len(c.BackendConfig) > 0 {
		addSection("Backend")
		keys := make([]string, 0, len(c.BackendConfig))
		for k := range c.BackendConfig {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			value := c.BackendConfig[k]
			if strings.Contains(k, "secret") {
				value = "***"
			}
			addField(k, value)
		}
	}
	return sb.String()
}
