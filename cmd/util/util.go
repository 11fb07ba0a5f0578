package util

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ValentinKolb/anyKV/lib/common"
	"github.com/ValentinKolb/anyKV/lib/serialize"
	"github.com/ValentinKolb/anyKV/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

var v = common.NewViper()

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// Viper returns the viper instance holding the environment and the bound flags
func Viper() *viper.Viper {
	return v
}

// InitConfig reloads the environment (.env, .env.local and ANYKV_* variables)
func InitConfig() {
	v = common.NewViper()
}

// flagKeys maps cli flags to the settings keys they override
var flagKeys = map[string]string{
	"store":     "uri",
	"mode":      "serialization_mode",
	"ttl":       "default_ttl",
	"readonly":  "readonly",
	"log-level": "log_level",
}

// SetupStoreFlags adds the flags to select and configure a store to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "store"
	cmd.PersistentFlags().String(key, ".anykv", WrapString("Uri of the store (file path, file://, memory://, sqlite://, postgres://, redis://, s3:// or a .zip archive), env: ANYKV_URI"))

	key = "config"
	cmd.PersistentFlags().String(key, "", WrapString("Optional yaml or json file with the store config, replaces --store"))

	key = "mode"
	cmd.PersistentFlags().String(key, "auto", WrapString("Serialization mode (auto, raw, json, gob)"))

	key = "ttl"
	cmd.PersistentFlags().Int(key, 0, WrapString("Time to live of written values in seconds (0 = no expiration, only for drivers that support it)"))

	key = "readonly"
	cmd.PersistentFlags().Bool(key, false, WrapString("Open the store read only"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Log level (debug, info, warn, error)"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return err
			}
		}
	}
	return v.BindPFlags(cmd.Flags())
}

// InitLogging sets the level of all loggers from the bound configuration
func InitLogging() error {
	return common.InitLoggers(v.GetString("log_level"))
}

// GetSettings reads the settings from viper
func GetSettings() *common.Settings {
	return common.SettingsFrom(v)
}

// GetStoreConfig builds the store config from the config file or the settings
func GetStoreConfig() (store.Config, error) {
	var (
		cfg store.Config
		err error
	)
	if path := v.GetString("config"); path != "" {
		cfg, err = store.LoadConfigFile(path)
	} else {
		cfg, err = store.FromSettings(GetSettings())
	}
	if err != nil {
		return store.Config{}, err
	}
	if v.GetBool("readonly") {
		cfg.ReadOnly = true
	}
	return cfg, nil
}

// OpenStore opens the configured store
func OpenStore(ctx context.Context) (*store.Store, error) {
	cfg, err := GetStoreConfig()
	if err != nil {
		return nil, err
	}
	return store.New(ctx, cfg)
}

// GetMode returns the configured serialization mode
func GetMode() (serialize.Mode, error) {
	return serialize.ParseMode(v.GetString("serialization_mode"))
}

// PrintValue writes a value to w: bytes as they are, strings with a newline, everything else as json
func PrintValue(w io.Writer, value any) error {
	switch val := value.(type) {
	case nil:
		return nil
	case []byte:
		if utf8.Valid(val) {
			_, err := fmt.Fprintln(w, string(val))
			return err
		}
		_, err := w.Write(val)
		return err
	case string:
		_, err := fmt.Fprintln(w, val)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(val); err != nil {
			_, err = fmt.Fprintf(w, "%v\n", val)
			return err
		}
		return nil
	}
}
