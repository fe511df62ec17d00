package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sorabito/timefree/history"
)

type handlers struct {
	opts Options
}

// handleHealthz responds to liveness probes. When a ledger is
// configured its connectivity is part of liveness.
func (h *handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.opts.DB != nil {
		if err := h.opts.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz runs the detailed readiness checks: the media tool on
// PATH, a writable cache dir, and ledger connectivity when configured.
func (h *handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"media_tool", func() error {
			bin := h.opts.FFmpegPath
			if bin == "" {
				bin = "ffmpeg"
			}
			if filepath.IsAbs(bin) {
				_, err := os.Stat(bin)
				return err
			}
			_, err := exec.LookPath(bin)
			return err
		}},
		{"cache_dir", func() error {
			if h.opts.CacheDir == "" {
				return nil
			}
			return os.MkdirAll(h.opts.CacheDir, 0o755)
		}},
		{"ledger", func() error {
			if h.opts.DB == nil {
				return nil
			}
			return h.opts.DB.PingContext(r.Context())
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// handleStatus returns the most recent ledger entries, or notes that
// history is disabled.
func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.opts.DB == nil {
		_ = json.NewEncoder(w).Encode(map[string]string{"history": "disabled"})
		return
	}
	entries, err := history.ListRecent(r.Context(), h.opts.DB, 20)
	if err != nil {
		http.Error(w, fmt.Sprintf("list recordings: %v", err), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"recordings": entries})
}
