package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const indexPage = `<html><body><h1>Retrieval Metrics</h1><p><a href="/metrics">/metrics</a></p></body></html>`

// StartServer serves /metrics on port in the background. It is used by the
// retrieval CLI, which has no HTTP server of its own.
func StartServer(port int) (shutdown func(context.Context) error) {
	logger := slog.Default().With("component", "metrics")
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newMux(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "addr", server.Addr, "error", err)
		}
	}()

	return server.Shutdown
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, indexPage)
	})
	return mux
}
