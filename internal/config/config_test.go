package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/duolaunch/internal/process"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launcher.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Service.Port != 8090 {
		t.Errorf("Service.Port = %d, want 8090", cfg.Service.Port)
	}
	if cfg.Service.StartupTimeoutSeconds != 30 {
		t.Errorf("Service.StartupTimeoutSeconds = %d, want 30", cfg.Service.StartupTimeoutSeconds)
	}
	if cfg.Service.Path != "./torrserver/torrserver" {
		t.Errorf("Service.Path = %q", cfg.Service.Path)
	}
	if cfg.Foreground.Path != "./lampa/lampa" {
		t.Errorf("Foreground.Path = %q", cfg.Foreground.Path)
	}
	if cfg.Logging.MaxSizeMB != 1 {
		t.Errorf("Logging.MaxSizeMB = %d, want 1", cfg.Logging.MaxSizeMB)
	}
	if cfg.HistoryDB != "" {
		t.Errorf("HistoryDB = %q, want history disabled by default", cfg.HistoryDB)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "configuration file not found") {
		t.Errorf("Load() = %q, want a not-found message", err)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Port != 8090 {
		t.Errorf("Service.Port = %d, want default 8090", cfg.Service.Port)
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
service:
  path: bin/torrserver
  args: ["-p", "{port}", "--httpauth"]
  port: 9118
  startup_timeout_seconds: 12
foreground:
  path: /opt/lampa/lampa
  args: ["--kiosk"]
shutdown:
  grace_period_seconds: 3
  budget_seconds: 7
probe:
  interval_ms: 50
logging:
  level: debug
  format: json
history_db: state/history.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Service.Port != 9118 {
		t.Errorf("Service.Port = %d, want 9118", cfg.Service.Port)
	}
	if cfg.Service.Name != "torrserver" {
		t.Errorf("Service.Name = %q, want default kept", cfg.Service.Name)
	}
	if cfg.Probe.DialTimeoutMS != 200 {
		t.Errorf("Probe.DialTimeoutMS = %d, want default 200", cfg.Probe.DialTimeoutMS)
	}
	if cfg.BaseDir() != filepath.Dir(path) {
		t.Errorf("BaseDir() = %q, want %q", cfg.BaseDir(), filepath.Dir(path))
	}

	r := cfg.Resolve()
	if want := []string{"-p", "9118", "--httpauth"}; !slices.Equal(r.Service.Args, want) {
		t.Errorf("service args = %v, want %v", r.Service.Args, want)
	}
	if want := filepath.Join(filepath.Dir(path), "bin/torrserver"); r.Service.Path != want {
		t.Errorf("service path = %q, want %q", r.Service.Path, want)
	}
	if r.Foreground.Path != "/opt/lampa/lampa" {
		t.Errorf("absolute foreground path changed to %q", r.Foreground.Path)
	}
	if r.Service.StartupTimeout != 12*time.Second {
		t.Errorf("StartupTimeout = %v, want 12s", r.Service.StartupTimeout)
	}
	if r.Service.GracePeriod != 3*time.Second || r.Foreground.GracePeriod != 3*time.Second {
		t.Errorf("grace periods = %v/%v, want 3s", r.Service.GracePeriod, r.Foreground.GracePeriod)
	}
	if r.ShutdownBudget != 7*time.Second {
		t.Errorf("ShutdownBudget = %v, want 7s", r.ShutdownBudget)
	}
	if r.ProbeInterval != 50*time.Millisecond {
		t.Errorf("ProbeInterval = %v, want 50ms", r.ProbeInterval)
	}
	if want := filepath.Join(filepath.Dir(path), "state/history.db"); r.HistoryDB != want {
		t.Errorf("HistoryDB = %q, want %q", r.HistoryDB, want)
	}
	if r.Service.Role != process.RoleService || r.Foreground.Role != process.RoleForeground {
		t.Errorf("roles = %v/%v", r.Service.Role, r.Foreground.Role)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "service:\n  prot: 9000\n"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "service: [unclosed\n"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_ValidatesValues(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "service:\n  port: 0\nshutdown:\n  budget_seconds: -1\n"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() = %v, want ErrInvalidConfig", err)
	}
	for _, want := range []string{"service.port", "shutdown.budget_seconds"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Load() = %q, want it to mention %s", err, want)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvServicePath, "/usr/local/bin/torrserver")
	t.Setenv(EnvServicePort, "9999")
	t.Setenv(EnvForegroundPath, "/usr/local/bin/lampa")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(writeConfig(t, "service:\n  port: 8091\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Path != "/usr/local/bin/torrserver" {
		t.Errorf("Service.Path = %q", cfg.Service.Path)
	}
	if cfg.Service.Port != 9999 {
		t.Errorf("Service.Port = %d, want env value 9999 over the file", cfg.Service.Port)
	}
	if cfg.Foreground.Path != "/usr/local/bin/lampa" {
		t.Errorf("Foreground.Path = %q", cfg.Foreground.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestResolve_GracePeriods(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		yaml           string
		wantService    time.Duration
		wantForeground time.Duration
	}{
		"shared only": {
			yaml:           "shutdown:\n  grace_period_seconds: 4\n",
			wantService:    4 * time.Second,
			wantForeground: 4 * time.Second,
		},
		"service override": {
			yaml:           "service:\n  grace_period_seconds: 15\nshutdown:\n  grace_period_seconds: 4\n",
			wantService:    15 * time.Second,
			wantForeground: 4 * time.Second,
		},
		"foreground override": {
			yaml:           "foreground:\n  grace_period_seconds: 1\n",
			wantService:    5 * time.Second,
			wantForeground: 1 * time.Second,
		},
		"both overridden": {
			yaml:           "service:\n  grace_period_seconds: 20\nforeground:\n  grace_period_seconds: 2\n",
			wantService:    20 * time.Second,
			wantForeground: 2 * time.Second,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load(writeConfig(t, tc.yaml))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			r := cfg.Resolve()
			if r.Service.GracePeriod != tc.wantService {
				t.Errorf("service grace period = %v, want %v", r.Service.GracePeriod, tc.wantService)
			}
			if r.Foreground.GracePeriod != tc.wantForeground {
				t.Errorf("foreground grace period = %v, want %v", r.Foreground.GracePeriod, tc.wantForeground)
			}
		})
	}
}

func TestLoad_EnvPortNotANumber(t *testing.T) {
	t.Setenv(EnvServicePort, "eighty")

	_, err := Load(writeConfig(t, ""))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate  func(*Config)
		wantErr string
	}{
		"defaults": {
			mutate: func(*Config) {},
		},
		"empty service path": {
			mutate:  func(c *Config) { c.Service.Path = "" },
			wantErr: "service.path must not be empty",
		},
		"port out of range": {
			mutate:  func(c *Config) { c.Service.Port = 65536 },
			wantErr: "service.port must be in 1..65535",
		},
		"zero startup timeout": {
			mutate:  func(c *Config) { c.Service.StartupTimeoutSeconds = 0 },
			wantErr: "service.startup_timeout_seconds must be positive",
		},
		"empty foreground path": {
			mutate:  func(c *Config) { c.Foreground.Path = "" },
			wantErr: "foreground.path must not be empty",
		},
		"duplicate names": {
			mutate:  func(c *Config) { c.Foreground.Name = c.Service.Name },
			wantErr: "must differ",
		},
		"zero grace period": {
			mutate:  func(c *Config) { c.Shutdown.GracePeriodSeconds = 0 },
			wantErr: "shutdown.grace_period_seconds must be positive",
		},
		"negative service grace period": {
			mutate:  func(c *Config) { c.Service.GracePeriodSeconds = -1 },
			wantErr: "service.grace_period_seconds must not be negative",
		},
		"negative foreground grace period": {
			mutate:  func(c *Config) { c.Foreground.GracePeriodSeconds = -2 },
			wantErr: "foreground.grace_period_seconds must not be negative",
		},
		"zero probe interval": {
			mutate:  func(c *Config) { c.Probe.IntervalMS = 0 },
			wantErr: "probe.interval_ms must be positive",
		},
		"unknown log level": {
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level must be one of",
		},
		"upper-case log level": {
			mutate: func(c *Config) { c.Logging.Level = "DEBUG" },
		},
		"unknown log format": {
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format must be one of",
		},
		"file logging without size": {
			mutate:  func(c *Config) { c.Logging.MaxSizeMB = 0 },
			wantErr: "logging.max_size_mb must be positive",
		},
		"no file logging without size": {
			mutate: func(c *Config) {
				c.Logging.File = ""
				c.Logging.MaxSizeMB = 0
			},
		},
		"empty lock file": {
			mutate:  func(c *Config) { c.LockFile = "" },
			wantErr: "lock_file must not be empty",
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := Defaults()
			tc.mutate(cfg)
			err := cfg.Validate()

			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestResolve_DoesNotShareArgs(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Foreground.Args = []string{"--fullscreen"}
	r := cfg.Resolve()
	r.Foreground.Args[0] = "--windowed"
	r.Service.Args[0] = "--changed"

	if cfg.Foreground.Args[0] != "--fullscreen" {
		t.Error("resolved foreground args share memory with the config")
	}
	if cfg.Service.Args[0] != "--port" {
		t.Error("resolved service args share memory with the config")
	}
}

func TestResolve_RelativePathsWithoutFile(t *testing.T) {
	t.Parallel()

	r := Defaults().Resolve()
	if r.Service.Path != "./torrserver/torrserver" {
		t.Errorf("service path = %q, want it untouched without a config dir", r.Service.Path)
	}
	if r.Service.WorkDir() != "torrserver" {
		t.Errorf("service work dir = %q, want %q", r.Service.WorkDir(), "torrserver")
	}
}
