package config

import (
	"github.com/spf13/pflag"
)

// FetchConfig holds configuration for the fetch-metadata command.
type FetchConfig struct {
	NodeURL      string
	MetadataPath string
	LogLevel     string
}

// LoadFetch merges config file, environment variables, and flags into FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return FetchConfig{}, err
	}

	cfg := FetchConfig{
		NodeURL:      v.GetString("node-url"),
		MetadataPath: v.GetString("metadata"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
