// Package healthcheck runs the HTTP listener cloud platforms probe to decide
// whether the bot instance is alive. It shares no mutable state with the
// message-handling path.
package healthcheck

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alexstashenko/hr-assistant-bot/internal/observability"
)

const bannerText = "HR Assistant Bot is running"

type Server struct {
	httpServer *http.Server
	addr       string
}

// NormalizeListen turns a bare port ("8080") into a listen address (":8080").
// An empty value disables the server.
func NormalizeListen(listen string) string {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return ""
	}
	if _, err := strconv.Atoi(listen); err == nil {
		return ":" + listen
	}
	return listen
}

// StartServer begins serving health and metrics endpoints on addr and returns
// immediately. The caller shuts it down via Shutdown.
func StartServer(ctx context.Context, logger *slog.Logger, addr string, component string) (*Server, error) {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(bannerText))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(bannerText))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ready"))
	})
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, req)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			if ctx == nil {
				return context.Background()
			}
			return ctx
		},
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("health_server_error", "component", component, "addr", addr, "error", err.Error())
		}
	}()
	logger.Info("health_server_started", "component", component, "addr", ln.Addr().String())
	return &Server{httpServer: srv, addr: ln.Addr().String()}, nil
}

// Addr returns the bound listen address, useful when addr requested port 0.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
