package common

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of all environment variables read by LoadSettings
const EnvPrefix = "anykv"

// Settings holds the process wide defaults.
// Every field can be set with an ANYKV_<KEY> environment variable (e.g. ANYKV_SERIALIZATION_MODE).
type Settings struct {
	URI               string
	SerializationMode string
	RaiseOnMissing    bool
	DefaultTTL        time.Duration
	LogLevel          string

	WorkerThreads   int
	WorkerHeartbeat time.Duration

	SQLTable    string
	SQLPoolSize int
	RedisPrefix string
}

// NewViper returns a viper instance with the defaults and the environment binding of all settings.
// .env and .env.local in the working directory are loaded into the environment first.
func NewViper() *viper.Viper {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("uri", ".anykv")
	v.SetDefault("serialization_mode", "auto")
	v.SetDefault("raise_on_missing", true)
	v.SetDefault("default_ttl", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("worker_threads", runtime.NumCPU())
	v.SetDefault("worker_heartbeat", 15)
	v.SetDefault("sql_table", "")
	v.SetDefault("sql_pool_size", 0)
	v.SetDefault("redis_prefix", "")
	return v
}

// SettingsFrom reads all settings from v
func SettingsFrom(v *viper.Viper) *Settings {
	return &Settings{
		URI:               v.GetString("uri"),
		SerializationMode: v.GetString("serialization_mode"),
		RaiseOnMissing:    v.GetBool("raise_on_missing"),
		DefaultTTL:        time.Duration(v.GetInt64("default_ttl")) * time.Second,
		LogLevel:          v.GetString("log_level"),
		WorkerThreads:     v.GetInt("worker_threads"),
		WorkerHeartbeat:   time.Duration(v.GetInt64("worker_heartbeat")) * time.Second,
		SQLTable:          v.GetString("sql_table"),
		SQLPoolSize:       v.GetInt("sql_pool_size"),
		RedisPrefix:       v.GetString("redis_prefix"),
	}
}

// LoadSettings reads the settings from the environment
func LoadSettings() *Settings {
	return SettingsFrom(NewViper())
}

// BackendConfig returns the driver specific settings in the form expected by store.Config.BackendConfig
func (s *Settings) BackendConfig() map[string]string {
	conf := map[string]string{}
	if s.SQLTable != "" {
		conf["sql_table"] = s.SQLTable
	}
	if s.SQLPoolSize > 0 {
		conf["sql_pool_size"] = fmt.Sprintf("%d", s.SQLPoolSize)
	}
	if s.RedisPrefix != "" {
		conf["redis_prefix"] = s.RedisPrefix
	}
	return conf
}

// String returns a formatted string representation of the settings
func (s *Settings) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Store")
	addField("URI", s.URI)
	addField("Serialization Mode", s.SerializationMode)
	addField("Raise On Missing", fmt.Sprintf("%t", s.RaiseOnMissing))
	addField("Default TTL", s.DefaultTTL.String())

	addSection("Worker")
	addField("Threads", fmt.Sprintf("%d", s.WorkerThreads))
	addField("Heartbeat", s.WorkerHeartbeat.String())

	if conf := s.BackendConfig(); len(conf) > 0 {
		addSection("Backend")
		for _, key := range []string{"sql_table", "sql_pool_size", "redis_prefix"} {
			if value, ok := conf[key]; ok {
				addField(key, value)
			}
		}
	}

	addSection("Logging")
	addField("Log Level", s.LogLevel)

	return sb.String()
}
