package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	browserdomain "github.com/dgnsrekt/zendriver-go/cdpwire/browserdomain"
	cdpnetwork "github.com/dgnsrekt/zendriver-go/cdpwire/network"
	cdptarget "github.com/dgnsrekt/zendriver-go/cdpwire/target"
	"github.com/dgnsrekt/zendriver-go/eventbus"
	"github.com/dgnsrekt/zendriver-go/fetchintercept"
	"github.com/dgnsrekt/zendriver-go/internal/launcher"
	"github.com/dgnsrekt/zendriver-go/internal/netutil"
	"github.com/dgnsrekt/zendriver-go/session"
	"github.com/dgnsrekt/zendriver-go/target"
	"github.com/dgnsrekt/zendriver-go/transport"
	"github.com/dgnsrekt/zendriver-go/zerrors"
)

// Browser supervises a Chromium process and the CDP connection to it,
// exposing the target manager and fetch interceptor built on top. Grounded
// in connection.py's Browser.create/Browser.stop and this repo's own
// launcher package (itself adapted from internal/browser/launcher.go).
type Browser struct {
	cfg      Config
	launcher *launcher.Launcher
	conn     *transport.Connection
	bus      *eventbus.Bus
	router   *session.Router
	manager  *target.Manager
	fetch    *fetchintercept.Interceptor

	tempProfile bool
}

// Start launches (or attaches to) a browser per cfg and returns a ready
// Browser with target discovery already running.
func Start(ctx context.Context, cfg Config) (*Browser, error) {
	b := &Browser{cfg: cfg}

	if cfg.Port == 0 {
		port, err := pickPort(cfg.Host)
		if err != nil {
			return nil, zerrors.New(zerrors.ConfigError, "select debugging port", err)
		}
		cfg.Port = port
	}

	tempProfile := false
	if cfg.UserDataDir == "" {
		dir, err := os.MkdirTemp("", "zendriver-profile-*")
		if err != nil {
			return nil, zerrors.New(zerrors.ConfigError, "create temp profile dir", err)
		}
		cfg.UserDataDir = dir
		tempProfile = true
	}
	b.tempProfile = tempProfile
	b.cfg = cfg

	launchCfg := launcher.Config{
		ExecutablePath: cfg.BrowserExecutablePath,
		Host:           cfg.Host,
		Port:           cfg.Port,
		UserDataDir:    cfg.UserDataDir,
		Sandbox:        cfg.Sandbox,
		WindowWidth:    cfg.WindowWidth,
		WindowHeight:   cfg.WindowHeight,
		Lang:           cfg.Lang,
		Headless:       cfg.Headless,
		ExtraArgs:      prepareExtraArgs(cfg),
	}
	b.launcher = launcher.New(launchCfg)
	if err := b.launcher.Launch(ctx); err != nil {
		return nil, zerrors.New(zerrors.ConnectError, "launch browser", err)
	}

	wsURL, err := browserWebSocketURL(ctx, cfg.Host, cfg.Port)
	if err != nil {
		b.launcher.Stop()
		return nil, err
	}

	conn, err := transport.Dial(ctx, wsURL)
	if err != nil {
		b.launcher.Stop()
		return nil, err
	}
	b.conn = conn
	b.bus = eventbus.New()
	conn.AddHandler(func(sessionID, method string, params json.RawMessage) {
		b.bus.Publish(method, sessionID, params)
	})

	b.router = session.New(conn, b.bus)
	b.manager = target.New(conn, b.router, b.bus)
	b.fetch = fetchintercept.New(conn, b.bus, fetchintercept.DefaultAutoContinueDeadline)

	if err := b.manager.Discover(ctx); err != nil {
		b.Stop()
		return nil, err
	}

	return b, nil
}

// prepareExtraArgs assembles the flags added on top of the launcher's base
// argument set: the caller's BrowserArgs, plus, when Expert is set,
// --disable-blink-features=AutomationControlled and --disable-popup-blocking.
// The user agent string is left unchanged.
func prepareExtraArgs(cfg Config) []string {
	args := append([]string{}, cfg.BrowserArgs...)
	if cfg.Expert {
		args = append(args,
			"--disable-blink-features=AutomationControlled",
			"--disable-popup-blocking",
		)
	}
	return args
}

func pickPort(host string) (int, error) {
	return netutil.FreeTCPPort(host)
}

func browserWebSocketURL(ctx context.Context, host string, port int) (string, error) {
	url := fmt.Sprintf("http://%s:%d/json/version", host, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", zerrors.New(zerrors.ConnectError, "GET /json/version", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", zerrors.New(zerrors.ConnectError, fmt.Sprintf("/json/version: HTTP %d", resp.StatusCode), nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", zerrors.New(zerrors.ProtocolError, "decode /json/version", err)
	}
	if info.WebSocketDebuggerURL == "" {
		return "", zerrors.New(zerrors.ConnectError, "empty webSocketDebuggerUrl", nil)
	}
	return info.WebSocketDebuggerURL, nil
}

// Manager exposes the target/tab manager.
func (b *Browser) Manager() *target.Manager { return b.manager }

// Fetch exposes the fetch interceptor.
func (b *Browser) Fetch() *fetchintercept.Interceptor { return b.fetch }

// Bus exposes the event bus for callers that need to subscribe directly to
// browser- or target-level events outside the Tab/Manager surface.
func (b *Browser) Bus() *eventbus.Bus { return b.bus }

// NewTab opens a new page target navigated to url.
func (b *Browser) NewTab(ctx context.Context, url string) (*target.Tab, error) {
	return b.manager.CreateTarget(ctx, url, false, false)
}

// Version returns the CDP Browser.getVersion result.
func (b *Browser) Version(ctx context.Context) (browserdomain.GetVersionReturns, error) {
	raw, err := b.conn.Send(ctx, "", browserdomain.MethodGetVersion, nil)
	if err != nil {
		return browserdomain.GetVersionReturns{}, err
	}
	var result browserdomain.GetVersionReturns
	if err := json.Unmarshal(raw, &result); err != nil {
		return browserdomain.GetVersionReturns{}, zerrors.New(zerrors.ProtocolError, "decode getVersion result", err)
	}
	return result, nil
}

// DisableCache turns off HTTP caching for the target behind sessionID, a common
// pairing with fetch interception so repeated requests aren't served from
// cache behind the interceptor's back.
func (b *Browser) DisableCache(ctx context.Context, sessionID cdptarget.SessionID) error {
	if _, err := b.conn.Send(ctx, string(sessionID), cdpnetwork.MethodEnable, cdpnetwork.EnableParams{}); err != nil {
		return err
	}
	_, err := b.conn.Send(ctx, string(sessionID), cdpnetwork.MethodSetCacheDisabled, cdpnetwork.SetCacheDisabledParams{CacheDisabled: true})
	return err
}

// closeGrace is how long Stop waits for Browser.close to take effect before
// falling back to the launcher's SIGTERM/SIGKILL escalation. It's the only
// shutdown signal available at all when attached to a browser this process
// didn't launch, since the launcher has no process to terminate in that case.
const closeGrace = 2 * time.Second

// Stop asks the browser to close itself via Browser.close, gives it
// closeGrace to exit, then stops the browser process if this Browser
// launched it and cleans up a temporary profile directory, mirroring
// connection.py's Browser.stop / browser.py's _cleanup_temporary_profile.
func (b *Browser) Stop() {
	if b.manager != nil {
		b.manager.Close()
	}
	if b.fetch != nil {
		b.fetch.Close()
	}
	if b.conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeGrace)
		_, _ = b.conn.Send(ctx, "", browserdomain.MethodClose, nil)
		cancel()
	}
	if b.bus != nil {
		b.bus.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
	if b.launcher != nil {
		b.launcher.Stop()
	}
	if b.tempProfile && b.cfg.UserDataDir != "" {
		if err := os.RemoveAll(b.cfg.UserDataDir); err != nil {
			slog.Warn("browser: failed to remove temp profile dir", "dir", b.cfg.UserDataDir, "error", err)
		}
	}
}

