// Package launcher spawns and supervises the Chromium/Chrome process
// backing a Browser, adapted from the teacher's internal/browser/launcher.go
// to the driver's richer Config (headless tri-state, expert mode, arbitrary
// extra args) instead of a single TradingView start URL.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"
)

// Config holds everything the launcher needs to assemble a command line and
// supervise the resulting process.
type Config struct {
	ExecutablePath string
	Host           string
	Port           int
	UserDataDir    string
	Sandbox        bool
	WindowWidth    int
	WindowHeight   int
	Lang           string
	// Headless is one of "", "false", "true", "new". Empty means headed.
	Headless string
	ExtraArgs []string
}

// Launcher manages the lifecycle of a browser process.
type Launcher struct {
	cfg     Config
	cmd     *exec.Cmd
	running bool
}

// New creates a launcher for cfg, applying defaults for zero-valued fields.
func New(cfg Config) *Launcher {
	if cfg.WindowWidth == 0 {
		cfg.WindowWidth = 1920
	}
	if cfg.WindowHeight == 0 {
		cfg.WindowHeight = 1080
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	return &Launcher{cfg: cfg}
}

// DetectBrowser finds an available Chrome/Chromium binary, searching the
// same candidate names and macOS app path the teacher's launcher used.
func DetectBrowser() (string, error) {
	candidates := []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		macPath := "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
		if _, err := os.Stat(macPath); err == nil {
			return macPath, nil
		}
	}
	return "", fmt.Errorf("launcher: no supported browser found (tried %v)", candidates)
}

func isPortInUse(address string, port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", address, port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Launch starts the browser process unless the CDP port already has a
// listener on it, in which case it is assumed to be a pre-existing browser
// the caller wants to attach to instead.
func (l *Launcher) Launch(ctx context.Context) error {
	if isPortInUse(l.cfg.Host, l.cfg.Port) {
		slog.Info("launcher: port already in use, attaching to existing browser", "host", l.cfg.Host, "port", l.cfg.Port)
		return nil
	}

	browserPath := l.cfg.ExecutablePath
	if browserPath == "" {
		path, err := DetectBrowser()
		if err != nil {
			return err
		}
		browserPath = path
	}
	slog.Info("launcher: using browser binary", "path", browserPath)

	if l.cfg.UserDataDir != "" {
		if err := os.MkdirAll(l.cfg.UserDataDir, 0o755); err != nil {
			return fmt.Errorf("launcher: create user data dir: %w", err)
		}
	}

	args := l.buildArgs()
	l.cmd = exec.Command(browserPath, args...)
	l.cmd.Stdout = os.Stdout
	l.cmd.Stderr = os.Stderr

	if err := l.cmd.Start(); err != nil {
		return fmt.Errorf("launcher: start browser: %w", err)
	}
	l.running = true
	slog.Info("launcher: browser process started", "pid", l.cmd.Process.Pid)

	if err := l.waitForCDP(ctx); err != nil {
		l.Stop()
		return fmt.Errorf("launcher: waiting for CDP: %w", err)
	}
	slog.Info("launcher: CDP endpoint ready", "host", l.cfg.Host, "port", l.cfg.Port)
	return nil
}

func (l *Launcher) buildArgs() []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", l.cfg.Port),
		fmt.Sprintf("--remote-debugging-address=%s", l.cfg.Host),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-dev-shm-usage",
		"--disable-breakpad",
		"--disable-crash-reporter",
		fmt.Sprintf("--window-size=%d,%d", l.cfg.WindowWidth, l.cfg.WindowHeight),
	}
	if l.cfg.UserDataDir != "" {
		args = append(args, fmt.Sprintf("--user-data-dir=%s", l.cfg.UserDataDir))
	}
	if !l.cfg.Sandbox {
		args = append(args, "--no-sandbox")
	}
	if l.cfg.Lang != "" {
		args = append(args, fmt.Sprintf("--lang=%s", l.cfg.Lang))
	}
	switch l.cfg.Headless {
	case "true":
		args = append(args, "--headless")
	case "new":
		args = append(args, "--headless=new")
	}
	args = append(args, l.cfg.ExtraArgs...)
	return args
}

// waitForCDP polls the CDP /json/version endpoint until it responds.
func (l *Launcher) waitForCDP(ctx context.Context) error {
	url := fmt.Sprintf("http://%s:%d/json/version", l.cfg.Host, l.cfg.Port)
	deadline := time.After(15 * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("launcher: CDP did not become ready within 15s at %s", url)
		case <-ticker.C:
			resp, err := client.Get(url)
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}

// Running reports whether this launcher spawned a browser process (as
// opposed to attaching to one that was already listening).
func (l *Launcher) Running() bool {
	return l.running
}

// Stop terminates the browser process with SIGTERM, falling back to
// SIGKILL after 5 seconds.
func (l *Launcher) Stop() {
	if l.cmd == nil || l.cmd.Process == nil {
		return
	}
	slog.Info("launcher: stopping browser", "pid", l.cmd.Process.Pid)
	_ = l.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = l.cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("launcher: browser stopped gracefully")
	case <-time.After(5 * time.Second):
		slog.Warn("launcher: browser did not exit, sending SIGKILL")
		_ = l.cmd.Process.Kill()
		<-done
	}
	l.running = false
}
