package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c6online/connect6-backend/internal/manager"
)

const shutdownTimeout = 5 * time.Second

// Server - accepts websocket connections and runs one session per
// connection.
type Server struct {
	logger   *slog.Logger
	registry *manager.Registry
	upgrader websocket.Upgrader
}

// New - creates a websocket server on top of a game registry.
func New(logger *slog.Logger, registry *manager.Registry) *Server {
	return &Server{
		logger:   logger.With("component", "websocket"),
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Game access is guarded by passcodes, not origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start - serves websocket upgrades until the context is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.handleUpgrade(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start websocket server: %w", err)
	}

	return nil
}

// handleUpgrade - upgrades the connection and hands it to a session.
func (that *Server) handleUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		that.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	sess := newSession(that.logger, that.registry, conn)
	sess.run(ctx)
}
