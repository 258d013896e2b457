package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk YAML configuration. Env vars and flags override it;
// see LoadEffective.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		// Engine selects the HTTP transport: "nethttp" (default) or
		// "fasthttp".
		Engine string `yaml:"engine"`
	} `yaml:"server"`
	Storage struct {
		DBPath  string `yaml:"db_path"`
		LockDir string `yaml:"lock_dir"`
	} `yaml:"storage"`
	Cache struct {
		DataTTLSeconds     int `yaml:"data_ttl_seconds"`
		CountsTTLSeconds   int `yaml:"counts_ttl_seconds"`
		BathroomTTLSeconds int `yaml:"bathroom_ttl_seconds"`
	} `yaml:"cache"`
	Locks struct {
		WriteTimeoutMs int `yaml:"write_timeout_ms"`
		ScanTimeoutMs  int `yaml:"scan_timeout_ms"`
	} `yaml:"locks"`
	Sweeper struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"sweeper"`
	Security struct {
		CORS struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Addr returns the listen address, preferring an explicit address over a
// bare port.
func (c *Config) Addr() string {
	if c.Server.Address != "" {
		return c.Server.Address
	}
	if c.Server.Port != 0 {
		return fmt.Sprintf(":%d", c.Server.Port)
	}
	return ":8080"
}

// DataTTL returns the roster/issue cache TTL.
func (c *Config) DataTTL() time.Duration { return secondsOr(c.Cache.DataTTLSeconds, 300) }

// CountsTTL returns the count-snapshot cache TTL.
func (c *Config) CountsTTL() time.Duration { return secondsOr(c.Cache.CountsTTLSeconds, 300) }

// BathroomTTL returns the bathroom view cache TTL.
func (c *Config) BathroomTTL() time.Duration { return secondsOr(c.Cache.BathroomTTLSeconds, 30) }

// WriteLockTimeout returns the batch-write lock timeout.
func (c *Config) WriteLockTimeout() time.Duration { return millisOr(c.Locks.WriteTimeoutMs, 10000) }

// ScanLockTimeout returns the bathroom-scan lock timeout.
func (c *Config) ScanLockTimeout() time.Duration { return millisOr(c.Locks.ScanTimeoutMs, 3000) }

func secondsOr(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

func millisOr(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Millisecond
}

// Load reads and parses the YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// ParseCommandFlags parses the shared server flags and reports which were
// explicitly set, so flags can win over env and file values.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	flag.StringVar(&addr, "addr", ":8080", "listen address")
	flag.StringVar(&dbPath, "db", "./db", "database path")
	flag.StringVar(&cfgPath, "config", "", "path to config.yaml")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return addr, dbPath, cfgPath, setFlags
}

// LoadEnvOverrides applies CLASSLOG_* env vars on top of cfg and reports
// whether any were used.
func LoadEnvOverrides(cfg *Config) bool {
	used := false
	if v := strings.TrimSpace(os.Getenv("CLASSLOG_ADDR")); v != "" {
		cfg.Server.Address = v
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("CLASSLOG_DB_PATH")); v != "" {
		cfg.Storage.DBPath = v
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("CLASSLOG_LOCK_DIR")); v != "" {
		cfg.Storage.LockDir = v
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("CLASSLOG_ENGINE")); v != "" {
		cfg.Server.Engine = v
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("CLASSLOG_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("CLASSLOG_SWEEPER_CRON")); v != "" {
		cfg.Sweeper.Cron = v
		cfg.Sweeper.Enabled = true
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("CLASSLOG_RATE_RPS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Security.RateLimit.RPS = f
			used = true
		}
	}
	return used
}

// ResolveConfigPath picks the config file path: an explicit flag wins, then
// CLASSLOG_CONFIG, then the conventional ./config.yaml.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet && flagPath != "" {
		return flagPath
	}
	if v := strings.TrimSpace(os.Getenv("CLASSLOG_CONFIG")); v != "" {
		return v
	}
	return "config.yaml"
}

// LoadEffective merges file and env config. A missing file is not an error
// (env/flags may carry everything); envUsed reports whether env overrides
// applied.
func LoadEffective(path string) (cfg *Config, fileUsed, envUsed bool, err error) {
	cfg = &Config{}
	if path != "" {
		if loaded, lerr := Load(path); lerr == nil {
			cfg = loaded
			fileUsed = true
		} else if !os.IsNotExist(lerr) {
			return nil, false, false, lerr
		}
	}
	envUsed = LoadEnvOverrides(cfg)
	return cfg, fileUsed, envUsed, nil
}
