// Package browser is the browser supervisor (C8): it owns the launcher
// process, the browser-level transport connection, and the session router,
// target manager, and fetch interceptor built on top of it. Config loading
// follows the teacher's internal/config.Load()'s getEnvOrDefault helpers,
// generalized from the TradingView researcher's env vars to the full set
// spec.md's Config type names.
package browser

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/dgnsrekt/zendriver-go/zerrors"
)

// Config configures how Start launches or attaches to a browser.
type Config struct {
	// Headless is one of "", "false" (headed), "true" (legacy headless),
	// or "new" (Chromium's --headless=new).
	Headless string

	UserDataDir          string
	BrowserExecutablePath string
	Sandbox              bool
	BrowserArgs          []string
	WindowWidth          int
	WindowHeight         int
	Lang                 string
	Host                 string
	Port                 int

	// Expert appends --disable-blink-features=AutomationControlled and
	// --disable-popup-blocking to the launch flags. It does not mask
	// navigator.webdriver or patch attachShadow in the page.
	Expert bool
}

// LoadConfig reads configuration from environment variables and an
// optional .env file, mirroring internal/config.Load()'s shape.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("browser: no .env file loaded", "error", err)
	}

	cfg := &Config{
		Headless:              getEnvOrDefault("ZENDRIVER_HEADLESS", "new"),
		UserDataDir:           getEnvOrDefault("ZENDRIVER_USER_DATA_DIR", ""),
		BrowserExecutablePath: getEnvOrDefault("ZENDRIVER_EXECUTABLE_PATH", ""),
		Sandbox:               getEnvBoolOrDefault("ZENDRIVER_SANDBOX", false),
		WindowWidth:           getEnvIntOrDefault("ZENDRIVER_WINDOW_WIDTH", 1920),
		WindowHeight:          getEnvIntOrDefault("ZENDRIVER_WINDOW_HEIGHT", 1080),
		Lang:                  getEnvOrDefault("ZENDRIVER_LANG", "en-US"),
		Host:                  getEnvOrDefault("ZENDRIVER_HOST", "127.0.0.1"),
		Port:                  getEnvIntOrDefault("ZENDRIVER_PORT", 0),
		Expert:                getEnvBoolOrDefault("ZENDRIVER_EXPERT", true),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every field holds a well-formed value, failing
// closed with ConfigError on the first problem found. Config is a typed
// struct rather than a loose document, so there is no "unknown key" to
// reject here; LoadConfig already only ever reads the ZENDRIVER_* names it
// knows about, silently ignoring anything else in the environment or .env
// file.
func (c *Config) Validate() error {
	switch c.Headless {
	case "", "true", "false", "new":
	default:
		return zerrors.New(zerrors.ConfigError, fmt.Sprintf("Headless must be one of true,false,new, got %q", c.Headless), nil)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return zerrors.New(zerrors.ConfigError, fmt.Sprintf("window size must be positive, got %dx%d", c.WindowWidth, c.WindowHeight), nil)
	}
	if c.Port < 0 || c.Port > 65535 {
		return zerrors.New(zerrors.ConfigError, fmt.Sprintf("Port must be in [0,65535], got %d", c.Port), nil)
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
