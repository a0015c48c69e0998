// Package config loads application settings through Viper, with environment
// overrides and a generated default file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/raykavin/signalrun/pkg/core"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "./signalrun.yaml"

// Load reads the configuration file at path, creating it with defaults when
// missing. Environment variables override file values.
func Load(path string) (*core.Settings, error) {
	v := viper.New()
	// Nested keys map to underscore-separated variables, e.g. TELEGRAM_TOKEN.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = DefaultConfigPath
	}
	v.SetConfigFile(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefaultConfig(v, path); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	return buildSettings(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracker.tick_interval", "60s")
	v.SetDefault("tracker.min_update_interval", "5m")
	v.SetDefault("tracker.min_pct_change", 5.0)
	v.SetDefault("tracker.max_signal_age", "72h")
	v.SetDefault("tracker.milestones", []float64{25, 50, 75, 90})

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", "signalrun.json")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("binance.testnet", false)
	v.SetDefault("mysql.enabled", false)
	v.SetDefault("giveaway.enabled", false)
	v.SetDefault("giveaway.data_dir", "./giveaway")

	v.SetDefault("symbols", []string{})
}

func buildSettings(v *viper.Viper) (*core.Settings, error) {
	tracker := core.DefaultTrackerSettings()

	var err error
	if tracker.TickInterval, err = str2duration.ParseDuration(v.GetString("tracker.tick_interval")); err != nil {
		return nil, fmt.Errorf("invalid tracker.tick_interval: %w", err)
	}
	if tracker.MinUpdateInterval, err = str2duration.ParseDuration(v.GetString("tracker.min_update_interval")); err != nil {
		return nil, fmt.Errorf("invalid tracker.min_update_interval: %w", err)
	}
	if tracker.MaxSignalAge, err = str2duration.ParseDuration(v.GetString("tracker.max_signal_age")); err != nil {
		return nil, fmt.Errorf("invalid tracker.max_signal_age: %w", err)
	}
	tracker.MinPctChange = v.GetFloat64("tracker.min_pct_change")
	if milestones := readFloats(v, "tracker.milestones"); len(milestones) > 0 {
		tracker.Milestones = milestones
	}

	settings := &core.Settings{
		Tracker: tracker,
		Telegram: core.TelegramSettings{
			Enabled: v.GetBool("telegram.enabled"),
			Token:   v.GetString("telegram.token"),
			Users:   v.GetIntSlice("telegram.users"),
		},
		Binance: core.BinanceSettings{
			APIKey:    v.GetString("binance.api_key"),
			SecretKey: v.GetString("binance.secret_key"),
			Testnet:   v.GetBool("binance.testnet"),
		},
		OpenAI: core.OpenAISettings{
			APIKey:  v.GetString("openai.api_key"),
			Model:   v.GetString("openai.model"),
			BaseURL: v.GetString("openai.base_url"),
		},
		MySQL: core.MySQLSettings{
			Enabled: v.GetBool("mysql.enabled"),
			DSN:     v.GetString("mysql.dsn"),
		},
		Giveaway: core.GiveawaySettings{
			Enabled: v.GetBool("giveaway.enabled"),
			DataDir: v.GetString("giveaway.data_dir"),
		},
		Storage: core.StorageSettings{
			Backend: v.GetString("storage.backend"),
			Path:    v.GetString("storage.path"),
		},
		Symbols: v.GetStringSlice("symbols"),
	}

	return settings, nil
}

func readFloats(v *viper.Viper, key string) []float64 {
	raw := v.Get(key)
	values, ok := raw.([]interface{})
	if !ok {
		if direct, ok := raw.([]float64); ok {
			return direct
		}
		return nil
	}

	out := make([]float64, 0, len(values))
	for _, value := range values {
		switch n := value.(type) {
		case float64:
			out = append(out, n)
		case int:
			out = append(out, float64(n))
		}
	}
	return out
}

func writeDefaultConfig(v *viper.Viper, path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create configuration directory: %w", err)
		}
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not save default configuration: %w", err)
	}
	return nil
}
