package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	geminiwebchat "github.com/MegaGrindStone/gemini-web-chat"
	"github.com/MegaGrindStone/gemini-web-chat/internal/chat"
	"github.com/MegaGrindStone/gemini-web-chat/internal/handlers"
	"github.com/MegaGrindStone/gemini-web-chat/internal/services"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to the config file")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	gen, err := cfg.LLM.generator(logger)
	if err != nil {
		logger.Error("Failed to create generator", slog.String("error", err.Error()))
		os.Exit(1)
	}
	relay := services.NewRelay(gen, logger)

	m, err := handlers.NewMain(relay, cfg.handlerOptions(), logger)
	if err != nil {
		logger.Error("Failed to create handlers", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Serve static files
	staticFS, err := fs.Sub(geminiwebchat.StaticFS, "static")
	if err != nil {
		logger.Error("Failed to open static files", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc(chat.RelayPath, m.HandleRelay)
	mux.HandleFunc("/chats", m.HandleChats)
	mux.HandleFunc("/sse/messages", m.HandleSSE)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown sse server", slog.String("error", err.Error()))
		}
	})

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting", slog.String("addr", srv.Addr), slog.String("provider", gen.Name()))
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt/terminate signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", slog.String("error", err.Error()))

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String("error", err.Error()))
			}
		}
	}
}

// defaultConfigPath is config.yaml under the user config directory, or in the working directory when
// that cannot be determined.
func defaultConfigPath() string {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(cfgDir, "geminiwebchat", "config.yaml")
}
