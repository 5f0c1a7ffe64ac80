package web

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/cjeanneret/LunaGo/internal/logic/controller"
)

// StatusFunc returns a point-in-time controller snapshot.
type StatusFunc func() controller.Status

// RefreshFunc requests an immediate re-acquisition.
type RefreshFunc func()

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Status      StatusFunc
	Refresh     RefreshFunc
	Metrics     http.Handler
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If refresh is nil, POST /refresh returns 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, status StatusFunc, refresh RefreshFunc, metrics http.Handler, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Status:      status,
		Refresh:     refresh,
		Metrics:     metrics,
		staticFS:    staticFS,
	}
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatus returns the controller snapshot as JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.Status == nil {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Status())
}

// HandleRefresh handles POST /refresh to request an immediate
// re-alignment.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.Refresh == nil {
		http.Error(w, "controller not running", http.StatusServiceUnavailable)
		return
	}
	h.Refresh()
	if h.Broadcaster != nil {
		h.Broadcaster.Broadcast("info", "manual refresh requested")
	}
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, `{"status":"refresh requested"}`)
}

// HandleStatusStream streams broadcaster messages as server-sent events.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
