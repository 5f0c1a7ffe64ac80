package moon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cjeanneret/LunaGo/internal/debug"
	"github.com/cjeanneret/LunaGo/internal/scan"
)

// Client fetches the lunar age page over HTTP and scans the two
// anchored decimals out of the body stream. The body is consumed
// one pass, never buffered whole.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for the fixed service URL. The timeout
// bounds the whole fetch including the body scan; if it elapses
// mid-scan the scanner observes a closed stream and fails cleanly.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch performs one acquisition: GET the page, decode the Date
// header, locate both markers and read the decimal behind each.
// The illuminated fraction is rounded half-up to a whole percent.
func (c *Client) Fetch(ctx context.Context) (Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	debug.Verbose("Moon: fetching %s", c.url)
	resp, err := c.http.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("%w: status %s", ErrNetworkUnavailable, resp.Status)
	}

	dateValue := resp.Header.Get("Date")
	if dateValue == "" {
		return Reading{}, ErrNoDateHeader
	}
	serverDate, err := scan.ParseHTTPDate(dateValue)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %q", ErrNoDateHeader, dateValue)
	}

	s := scan.New(resp.Body)

	if err := s.FindMarker(AgeMarker); err != nil {
		return Reading{}, ErrNoAgeMarker
	}
	age, err := s.ReadDecimal()
	if err != nil {
		return Reading{}, fmt.Errorf("%w: lunar age", ErrNumberUnparseable)
	}

	if err := s.FindMarker(FractionMarker); err != nil {
		return Reading{}, ErrNoFractionMarker
	}
	fraction, err := s.ReadDecimal()
	if err != nil {
		return Reading{}, fmt.Errorf("%w: illuminated fraction", ErrNumberUnparseable)
	}

	reading := Reading{
		AgeDays:            age,
		IlluminatedPercent: int(fraction + 0.5),
		ServerDate:         serverDate,
	}
	debug.Info("Moon: age %.2f days, %d%% illuminated (server date %04d-%02d-%02d %02d:%02d:%02d GMT)",
		reading.AgeDays, reading.IlluminatedPercent,
		serverDate.Year, serverDate.Month, serverDate.Day,
		serverDate.Hour, serverDate.Minute, serverDate.Second)

	return reading, nil
}
