// Package sse streams session snapshots via Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/critique/pkg/application"
)

const keepAliveInterval = 15 * time.Second

// SnapshotSource is satisfied by *application.Coordinator.
type SnapshotSource interface {
	Subscribe() (<-chan application.Snapshot, func())
}

// SSEHandler streams one session's snapshots.
type SSEHandler struct {
	source    SnapshotSource
	keepAlive time.Duration
}

func NewSSEHandler(source SnapshotSource) *SSEHandler {
	return &SSEHandler{source: source, keepAlive: keepAliveInterval}
}

// ServeHTTP handles SSE connections. A "since" query parameter skips
// snapshots whose version is not newer.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	var since uint64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid since parameter", http.StatusBadRequest)
			return
		}
		since = n
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, cancel := h.source.Subscribe()
	defer cancel()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case snap, ok := <-updates:
			if !ok {
				_, _ = fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if snap.Version <= since && since > 0 {
				continue
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %d\n", snap.Version)
			_, _ = fmt.Fprint(w, "event: snapshot\n")
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
