package moon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const goodBody = `<html><body>
The age of the Moon is 14.7 days since the last new moon.
The illuminated fraction is 98.3 percent, waxing gibbous.
</body></html>`

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second)
}

func TestFetch(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Date", "Fri, 21 Aug 2015 22:06:40 GMT")
		w.Write([]byte(goodBody))
	})

	reading, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if diff := reading.AgeDays - 14.7; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AgeDays = %v, want 14.7", reading.AgeDays)
	}
	if reading.IlluminatedPercent != 98 {
		t.Errorf("IlluminatedPercent = %d, want 98 (98.3 rounds down)", reading.IlluminatedPercent)
	}
	if reading.ServerDate.Year != 2015 || reading.ServerDate.Day != 21 || reading.ServerDate.Hour != 22 {
		t.Errorf("ServerDate = %+v", reading.ServerDate)
	}
}

func TestFetch_FractionRoundsHalfUp(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("age of the Moon is 3.0 x fraction is 12.5 x"))
	})

	reading, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if reading.IlluminatedPercent != 13 {
		t.Errorf("IlluminatedPercent = %d, want 13", reading.IlluminatedPercent)
	}
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			"server error status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down", http.StatusInternalServerError)
			},
			ErrNetworkUnavailable,
		},
		{
			"invalid date header",
			func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Date", "Fri, 21 Aug 2015 22:06:40 PST")
				w.Write([]byte(goodBody))
			},
			ErrNoDateHeader,
		},
		{
			"age marker missing",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("a page about something else entirely"))
			},
			ErrNoAgeMarker,
		},
		{
			"fraction marker missing",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("age of the Moon is 14.7 and nothing more"))
			},
			ErrNoFractionMarker,
		},
		{
			"garbage after age marker",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("age of the Moon is unknown fraction is 98.3 x"))
			},
			ErrNumberUnparseable,
		},
		{
			"number ends the stream",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("age of the Moon is 14.7 x fraction is 98.3"))
			},
			ErrNumberUnparseable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newServer(t, tc.handler)
			_, err := client.Fetch(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, 500*time.Millisecond)
	_, err := client.Fetch(context.Background())
	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Errorf("want ErrNetworkUnavailable, got %v", err)
	}
}
