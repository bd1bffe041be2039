// Command zendriver-demo launches a browser, navigates its main tab, and
// prints the page title, exercising the driver end to end. It is not part
// of the library surface; it is a smoke-test harness in the shape of
// cmd/researcher/main.go's launch/log/signal-shutdown skeleton.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/zendriver-go/browser"
)

func main() {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		slog.Debug("log directory creation failed", "error", err)
	}

	logWriter := &lumberjack.Logger{
		Filename:   "logs/zendriver-demo.log",
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))

	slog.Info("starting zendriver-demo")

	cfg, err := browser.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startCancel()

	b, err := browser.Start(startCtx, *cfg)
	if err != nil {
		slog.Error("failed to start browser", "error", err)
		os.Exit(1)
	}
	defer b.Stop()

	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
		b.Stop()
	}()

	tab, err := b.Manager().MainTab(ctx)
	if err != nil {
		slog.Error("failed to get main tab", "error", err)
		os.Exit(1)
	}

	navCtx, navCancel := context.WithTimeout(ctx, 15*time.Second)
	defer navCancel()
	if err := tab.Get(navCtx, "about:blank"); err != nil {
		slog.Error("navigation failed", "error", err)
		os.Exit(1)
	}

	title, err := tab.Evaluate(ctx, "document.title")
	if err != nil {
		slog.Error("evaluate failed", "error", err)
		os.Exit(1)
	}

	slog.Info("navigation complete", "url", tab.URL(), "title", title)
}
