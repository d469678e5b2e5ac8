package config

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAPIAddress = "0.0.0.0:8080"

	DefaultSourcifyURL = "https://sourcify.dev/server"

	DefaultSolcListURL = "https://raw.githubusercontent.com/ethereum/solc-bin/gh-pages/bin/list.json"

	EnvPrefix = "SLOTLENS"
)

// Config defines the configuration of the slotlens binary. Each section may be given in a
// TOML, YAML or JSON file and overridden by SLOTLENS_<SECTION>_<KEY> env vars.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Registry RegistryConfig `mapstructure:"registry"`
	Compare  CompareConfig  `mapstructure:"compare"`
	Render   RenderConfig   `mapstructure:"render"`
}

// APIConfig defines the HTTP API server.
type APIConfig struct {
	Address        string        `mapstructure:"address"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

// RegistryConfig defines the verified-contract registry and the compiler list.
type RegistryConfig struct {
	SourcifyURL string        `mapstructure:"sourcify-url"`
	SolcListURL string        `mapstructure:"solc-list-url"`
	Attempts    uint          `mapstructure:"attempts"`
	RetryDelay  time.Duration `mapstructure:"retry-delay"`
}

// CompareConfig selects the analyzer of compatibility reports. An empty report URL
// selects the builtin analyzer.
type CompareConfig struct {
	ReportURL string `mapstructure:"report-url"`
	Attempts  uint   `mapstructure:"attempts"`
}

// RenderConfig defines terminal output.
type RenderConfig struct {
	ShowGaps  bool   `mapstructure:"show-gaps"`
	ShowEmpty bool   `mapstructure:"show-empty"`
	MaxRows   uint64 `mapstructure:"max-rows"`
	Output    string `mapstructure:"output"`
}

func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Address:        DefaultAPIAddress,
			AllowedOrigins: []string{"*"},
			RequestTimeout: 30 * time.Second,
		},
		Cache: *DefaultCacheConfig(),
		Registry: RegistryConfig{
			SourcifyURL: DefaultSourcifyURL,
			SolcListURL: DefaultSolcListURL,
			Attempts:    3,
			RetryDelay:  300 * time.Millisecond,
		},
		Compare: CompareConfig{
			Attempts: 3,
		},
		Render: RenderConfig{
			ShowEmpty: true,
			MaxRows:   1 << 16,
			Output:    "table",
		},
	}
}

// ParseConfig unmarshals v on top of the defaults.
func ParseConfig(v *viper.Viper) (Config, error) {
	conf := DefaultConfig()
	if err := v.Unmarshal(conf); err != nil {
		return Config{}, fmt.Errorf("error parsing app config: %w", err)
	}

	return *conf, nil
}

// GetConfig reads the optional config file at path and the SLOTLENS_* environment.
func GetConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return ParseConfig(v)
}

// bindDefaults registers every key so that AutomaticEnv overrides apply on Unmarshal.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("api.address", cfg.API.Address)
	v.SetDefault("api.allowed-origins", cfg.API.AllowedOrigins)
	v.SetDefault("api.request-timeout", cfg.API.RequestTimeout)

	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.redis-address", cfg.Cache.RedisAddress)
	v.SetDefault("cache.redis-password", cfg.Cache.RedisPassword)
	v.SetDefault("cache.redis-db", cfg.Cache.RedisDB)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.max-size-mb", cfg.Cache.MaxSizeMB)

	v.SetDefault("registry.sourcify-url", cfg.Registry.SourcifyURL)
	v.SetDefault("registry.solc-list-url", cfg.Registry.SolcListURL)
	v.SetDefault("registry.attempts", cfg.Registry.Attempts)
	v.SetDefault("registry.retry-delay", cfg.Registry.RetryDelay)

	v.SetDefault("compare.report-url", cfg.Compare.ReportURL)
	v.SetDefault("compare.attempts", cfg.Compare.Attempts)

	v.SetDefault("render.show-gaps", cfg.Render.ShowGaps)
	v.SetDefault("render.show-empty", cfg.Render.ShowEmpty)
	v.SetDefault("render.max-rows", cfg.Render.MaxRows)
	v.SetDefault("render.output", cfg.Render.Output)
}

// DefaultConfigTemplate is the TOML form of the configuration.
const DefaultConfigTemplate = `
###############################################################################
###                           API Configuration                             ###
###############################################################################

[api]

# Address the HTTP API listens on.
address = "{{ .API.Address }}"

# Origins allowed by CORS.
allowed-origins = [{{ range $i, $o := .API.AllowedOrigins }}{{ if $i }}, {{ end }}"{{ $o }}"{{ end }}]

# Maximum duration of a single request.
request-timeout = "{{ .API.RequestTimeout }}"

###############################################################################
###                          Cache Configuration                            ###
###############################################################################

[cache]

# Layout cache backend: "memory", "redis" or "none".
backend = "{{ .Cache.Backend }}"

redis-address = "{{ .Cache.RedisAddress }}"
redis-password = "{{ .Cache.RedisPassword }}"
redis-db = {{ .Cache.RedisDB }}

# How long cached layouts are kept, 0 keeps Redis entries forever.
ttl = "{{ .Cache.TTL }}"

# Size limit of the in-memory cache in MB, 0 is unlimited.
max-size-mb = {{ .Cache.MaxSizeMB }}

###############################################################################
###                        Registry Configuration                           ###
###############################################################################

[registry]

sourcify-url = "{{ .Registry.SourcifyURL }}"
solc-list-url = "{{ .Registry.SolcListURL }}"
attempts = {{ .Registry.Attempts }}
retry-delay = "{{ .Registry.RetryDelay }}"

###############################################################################
###                         Compare Configuration                           ###
###############################################################################

[compare]

# Upgrade-safety service receiving {originStorageLayout, destinationStorageLayout}.
# Leave empty to use the builtin analyzer.
report-url = "{{ .Compare.ReportURL }}"
attempts = {{ .Compare.Attempts }}

###############################################################################
###                          Render Configuration                           ###
###############################################################################

[render]

show-gaps = {{ .Render.ShowGaps }}
show-empty = {{ .Render.ShowEmpty }}
max-rows = {{ .Render.MaxRows }}

# "table" or "json".
output = "{{ .Render.Output }}"
`

var configTemplate = template.Must(template.New("slotlensConfigFileTemplate").Parse(DefaultConfigTemplate))

// WriteTemplate renders cfg as a TOML config file.
func WriteTemplate(cfg *Config) (string, error) {
	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to render config template: %w", err)
	}
	return buf.String(), nil
}
