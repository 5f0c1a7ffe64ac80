package moon

import (
	"context"
	"errors"

	"github.com/cjeanneret/LunaGo/internal/scan"
)

// Markers anchoring the two values in the service's response body.
// The page is plain text; no HTML parsing is attempted.
const (
	AgeMarker      = "age of the Moon is "
	FractionMarker = "fraction is "
)

// Failure taxonomy for one acquisition. All of these abort only the
// current acquisition; the controller decides whether to retry.
var (
	// ErrNetworkUnavailable covers transport-level failures: connect,
	// timeout, non-200 status.
	ErrNetworkUnavailable = errors.New("moon: network unavailable")
	// ErrNoDateHeader means the response carried no parseable Date header.
	ErrNoDateHeader = errors.New("moon: response has no valid Date header")
	// ErrNoAgeMarker means the age anchor phrase never appeared in the body.
	ErrNoAgeMarker = errors.New("moon: age marker not found in response")
	// ErrNoFractionMarker means the fraction anchor phrase never appeared.
	ErrNoFractionMarker = errors.New("moon: fraction marker not found in response")
	// ErrNumberUnparseable means a marker was found but no decimal followed it.
	ErrNumberUnparseable = errors.New("moon: unparseable number after marker")
)

// Reading is one successful acquisition of the current lunar state.
type Reading struct {
	// AgeDays is the days elapsed since the most recent new moon,
	// in [0, 29.53059).
	AgeDays float64
	// IlluminatedPercent is the illuminated fraction rounded to the
	// nearest whole percent.
	IlluminatedPercent int
	// ServerDate is the server's Date header, kept for provenance
	// only; it never drives scheduling.
	ServerDate scan.Timestamp
}

// Source supplies lunar readings. The production implementation is
// the HTTP Client; tests substitute scripted sources.
type Source interface {
	Fetch(ctx context.Context) (Reading, error)
}
