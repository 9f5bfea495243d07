package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names searched in the working directory, in order.
const (
	ConfigFileName    = "leapquery.yaml"
	ConfigFileNameAlt = "leapquery.yml"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates nesting levels: LEAPQUERY_ENGINE__ADDRESS sets engine.address.
const EnvPrefix = "LEAPQUERY_"

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are command arguments and never reach the config.
var flagKeys = map[string]string{
	"engine":     "engine.address",
	"catalog":    "engine.cold_storage_connector",
	"format":     "format",
	"log-format": "log.format",
	"addr":       "server.addr",
	"allow-raw":  "server.allow_raw",
}

// Loaded is a loaded configuration plus where it came from.
type Loaded struct {
	*Config
	// File is the config file that was read, empty if none.
	File string
}

// findConfigFile returns the config file to use.
// Priority: explicit path > leapquery.yaml > leapquery.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration from defaults, the config file, the environment and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Loaded, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: LEAPQUERY_HTTP__SOCKS_PROXY -> http.socks_proxy
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "verbose" {
				if v, _ := flags.GetBool("verbose"); v {
					return "log.level", "debug"
				}
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		if used != "" {
			return nil, fmt.Errorf("invalid configuration in %s: %w", used, err)
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Loaded{Config: &cfg, File: used}, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandEnvVars expands ${VAR} references in fields that commonly point at
// deployment-specific hosts.
func (c *Config) expandEnvVars() {
	c.Engine.Address = expandEnvVars(c.Engine.Address)
	c.CatalogEngine.Address = expandEnvVars(c.CatalogEngine.Address)
	c.HTTP.SocksProxy = expandEnvVars(c.HTTP.SocksProxy)
	c.Session.User = expandEnvVars(c.Session.User)
}
