package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/cjeanneret/LunaGo/internal/logic/controller"
)

func testServer(status StatusFunc, refresh RefreshFunc) *Server {
	return &Server{
		addr: ":0",
		handlers: NewHandlers(
			NewStatusBroadcaster(),
			status,
			refresh,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("# metrics\n"))
			}),
			fstest.MapFS{"index.html": &fstest.MapFile{Data: []byte("<html>luna</html>")}},
		),
	}
}

func TestHandleStatus(t *testing.T) {
	srv := testServer(func() controller.Status {
		return controller.Status{
			State:              "waiting",
			AngleSteps:         1034,
			LunarAgeDays:       14.7,
			IlluminatedPercent: 98,
			ImageIndex:         4,
			Alignments:         1,
		}
	}, nil)

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st controller.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != "waiting" || st.ImageIndex != 4 || st.LunarAgeDays != 14.7 {
		t.Errorf("snapshot = %+v", st)
	}
}

func TestHandleRefresh(t *testing.T) {
	refreshed := false
	srv := testServer(func() controller.Status { return controller.Status{} }, func() { refreshed = true })

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest("POST", "/refresh", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !refreshed {
		t.Error("refresh callback not invoked")
	}
}

func TestHandleRefresh_NoController(t *testing.T) {
	srv := testServer(func() controller.Status { return controller.Status{} }, nil)

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest("POST", "/refresh", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleRefresh_GetNotAllowed(t *testing.T) {
	srv := testServer(func() controller.Status { return controller.Status{} }, func() {})

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/refresh", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestServeIndex(t *testing.T) {
	srv := testServer(func() controller.Status { return controller.Status{} }, nil)

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "luna") {
		t.Errorf("index body = %q", rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := testServer(func() controller.Status { return controller.Status{} }, nil)

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "# metrics") {
		t.Errorf("metrics body = %q", rec.Body.String())
	}
}
