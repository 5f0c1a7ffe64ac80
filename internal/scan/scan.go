// Package scan implements the one-pass text scanner used to pull the
// lunar age out of the service's response. It is deliberately not a
// parser: the page is anchored by literal markers and the values
// behind them follow a tiny fixed grammar.
package scan

import (
	"bufio"
	"errors"
	"io"
)

var (
	// ErrMarkerNotFound means the stream ended before the marker appeared.
	ErrMarkerNotFound = errors.New("scan: marker not found before end of stream")
	// ErrBadNumber means no decimal number could be read at the cursor,
	// or the number was the last thing in the stream.
	ErrBadNumber = errors.New("scan: malformed decimal number")
	// ErrBadDate means the HTTP date grammar was violated.
	ErrBadDate = errors.New("scan: malformed HTTP date")
)

// Scanner is a forward-only cursor over a byte stream. Operations
// advance the cursor and cannot be re-run from the same position;
// a read error from the underlying stream (e.g. a transport timeout
// closing the body) surfaces as a failed operation, never a hang.
type Scanner struct {
	r *bufio.Reader
}

// New wraps a stream in a Scanner.
func New(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// FindMarker consumes and discards bytes up to and including the first
// occurrence of the literal marker, leaving the cursor just past it.
func (s *Scanner) FindMarker(marker string) error {
	if marker == "" {
		return nil
	}
	window := make([]byte, 0, len(marker))
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return ErrMarkerNotFound
		}
		if len(window) == len(marker) {
			copy(window, window[1:])
			window[len(window)-1] = b
		} else {
			window = append(window, b)
		}
		if len(window) == len(marker) && string(window) == marker {
			return nil
		}
	}
}

// ReadDecimal reads an unsigned decimal number at the cursor: ASCII
// digits with at most one decimal point, in any of the forms 34, 15.,
// 90.54, .2. At least one digit is required, and at least one
// character must follow the number (a number ending the stream is a
// failure). The terminating character is not consumed: after reading
// "11.9" from "11.9X" the next byte is 'X'.
func (s *Scanner) ReadDecimal() (float64, error) {
	var (
		value    float64
		divisor  float64
		sawDigit bool
		sawDot   bool
	)
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return 0, ErrBadNumber
		}
		switch {
		case b >= '0' && b <= '9':
			sawDigit = true
			d := float64(b - '0')
			if sawDot {
				divisor *= 10
				value += d / divisor
			} else {
				value = value*10 + d
			}
		case b == '.' && !sawDot:
			sawDot = true
			divisor = 1
		default:
			_ = s.r.UnreadByte()
			if !sawDigit {
				return 0, ErrBadNumber
			}
			return value, nil
		}
	}
}

// readExact returns the next n bytes, failing on a short stream.
func (s *Scanner) readExact(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// expect consumes the literal lit or fails.
func (s *Scanner) expect(lit string) error {
	got, err := s.readExact(len(lit))
	if err != nil {
		return err
	}
	if got != lit {
		return ErrBadDate
	}
	return nil
}

// readDigits reads exactly n ASCII digits and returns their value.
func (s *Scanner) readDigits(n int) (int, error) {
	str, err := s.readExact(n)
	if err != nil {
		return -1, err
	}
	v := 0
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c < '0' || c > '9' {
			return -1, ErrBadDate
		}
		v = v*10 + int(c-'0')
	}
	return v, nil
}
