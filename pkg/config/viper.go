package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads a YAML config file named configName from configPath (falling back
// to "." and "./config") and layers environment variables on top.
// A missing file is not an error; defaults and env vars still apply.
func Load(configPath, configName string) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// server.port -> SERVER_PORT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return v, nil
}

// Duration reads key as a duration string ("30s", "300m"). Plain integers are
// taken as seconds. Unparseable or non-positive values yield fallback.
func Duration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d <= 0 {
			return fallback
		}
		return d
	}
	if secs := v.GetInt(key); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// Strings reads key as a list, accepting either a YAML sequence or a
// comma-separated env value.
func Strings(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
