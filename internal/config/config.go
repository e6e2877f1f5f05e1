package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kubesonde/netprobe/internal/proc"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const DefaultEndpoint = "http://localhost:2709/monitor"

// Config holds the agent configuration.
type Config struct {
	Interval        time.Duration `mapstructure:"interval"`
	Source          string        `mapstructure:"source"`
	ProcRoot        string        `mapstructure:"proc_root"`
	ExcludeLoopback bool          `mapstructure:"exclude_loopback"`
	PodName         string        `mapstructure:"pod_name"`

	Stdout  StdoutConfig  `mapstructure:"stdout"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type StdoutConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type HTTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("interval", "10s")
	v.SetDefault("source", proc.KindGopsutil)
	v.SetDefault("proc_root", proc.DefaultProcRoot())
	v.SetDefault("exclude_loopback", false)
	v.SetDefault("pod_name", "")
	v.SetDefault("stdout.enabled", true)
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.endpoint", DefaultEndpoint)
	v.SetDefault("http.timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.addr", "")

	v.SetEnvPrefix("netprobe")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by existing deployments.
	_ = v.BindEnv("http.endpoint", "NETPROBE_HTTP_ENDPOINT", "HOST")
	_ = v.BindEnv("pod_name", "NETPROBE_POD_NAME", "POD_NAME")
}

// BindFlags maps command line flags onto configuration keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range map[string]string{
		"interval":         "interval",
		"source":           "source",
		"proc_root":        "proc-root",
		"exclude_loopback": "exclude-loopback",
		"log.level":        "log-level",
		"log.format":       "log-format",
		"http.enabled":     "http",
		"http.endpoint":    "endpoint",
		"stdout.enabled":   "stdout",
		"metrics.addr":     "metrics-addr",
	} {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file and decodes v into a validated Config.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalid, c.Interval)
	}
	switch c.Source {
	case proc.KindGopsutil, proc.KindProcfs:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalid, c.Source)
	}
	if c.HTTP.Enabled {
		u, err := url.Parse(c.HTTP.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: http endpoint %q is not an absolute http(s) URL", ErrInvalid, c.HTTP.Endpoint)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}
