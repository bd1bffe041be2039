package browser

import (
	"os"
	"testing"

	"github.com/dgnsrekt/zendriver-go/zerrors"
)

func clearZendriverEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"ZENDRIVER_HEADLESS", "ZENDRIVER_USER_DATA_DIR", "ZENDRIVER_EXECUTABLE_PATH",
		"ZENDRIVER_SANDBOX", "ZENDRIVER_WINDOW_WIDTH", "ZENDRIVER_WINDOW_HEIGHT",
		"ZENDRIVER_LANG", "ZENDRIVER_HOST", "ZENDRIVER_PORT", "ZENDRIVER_EXPERT",
	}
	for _, k := range keys {
		old, existed := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func(k string, old string, existed bool) func() {
			return func() {
				if existed {
					os.Setenv(k, old)
				} else {
					os.Unsetenv(k)
				}
			}
		}(k, old, existed))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearZendriverEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Headless != "new" {
		t.Errorf("Headless = %q, want new", cfg.Headless)
	}
	if cfg.WindowWidth != 1920 || cfg.WindowHeight != 1080 {
		t.Errorf("window = %dx%d, want 1920x1080", cfg.WindowWidth, cfg.WindowHeight)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", cfg.Host)
	}
	if !cfg.Expert {
		t.Error("Expert = false, want true by default")
	}
	if cfg.Sandbox {
		t.Error("Sandbox = true, want false by default")
	}
}

func TestLoadConfigReadsEnvOverrides(t *testing.T) {
	clearZendriverEnv(t)
	os.Setenv("ZENDRIVER_HEADLESS", "true")
	os.Setenv("ZENDRIVER_WINDOW_WIDTH", "800")
	os.Setenv("ZENDRIVER_SANDBOX", "true")
	os.Setenv("ZENDRIVER_PORT", "9333")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Headless != "true" {
		t.Errorf("Headless = %q, want true", cfg.Headless)
	}
	if cfg.WindowWidth != 800 {
		t.Errorf("WindowWidth = %d, want 800", cfg.WindowWidth)
	}
	if !cfg.Sandbox {
		t.Error("Sandbox = false, want true")
	}
	if cfg.Port != 9333 {
		t.Errorf("Port = %d, want 9333", cfg.Port)
	}
}

func TestLoadConfigRejectsInvalidHeadlessValue(t *testing.T) {
	clearZendriverEnv(t)
	os.Setenv("ZENDRIVER_HEADLESS", "maybe")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want ConfigError for invalid ZENDRIVER_HEADLESS")
	}
	ce, ok := err.(*zerrors.CodedError)
	if !ok || ce.Kind != zerrors.ConfigError {
		t.Fatalf("LoadConfig() error = %v, want ConfigError", err)
	}
}

func TestValidateRejectsNonPositiveWindowSize(t *testing.T) {
	cfg := &Config{Headless: "new", WindowWidth: 0, WindowHeight: 1080, Port: 9222}
	err := cfg.Validate()
	ce, ok := err.(*zerrors.CodedError)
	if !ok || ce.Kind != zerrors.ConfigError {
		t.Fatalf("Validate() error = %v, want ConfigError", err)
	}
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := &Config{Headless: "new", WindowWidth: 1920, WindowHeight: 1080, Port: 70000}
	err := cfg.Validate()
	ce, ok := err.(*zerrors.CodedError)
	if !ok || ce.Kind != zerrors.ConfigError {
		t.Fatalf("Validate() error = %v, want ConfigError", err)
	}
}

func TestValidateAcceptsZeroPortAsAutoSelect(t *testing.T) {
	cfg := &Config{Headless: "new", WindowWidth: 1920, WindowHeight: 1080, Port: 0}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil for Port: 0 (auto-select)", err)
	}
}

func TestLoadConfigIgnoresUnparseableIntOverride(t *testing.T) {
	clearZendriverEnv(t)
	os.Setenv("ZENDRIVER_WINDOW_WIDTH", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.WindowWidth != 1920 {
		t.Errorf("WindowWidth = %d, want default 1920 when env value is unparseable", cfg.WindowWidth)
	}
}
