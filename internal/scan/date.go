package scan

import "strings"

// Timestamp is a calendar timestamp decoded from an HTTP Date header.
// Fields are -1 until their token has been decoded; a failed parse
// leaves the already-decoded fields populated.
type Timestamp struct {
	DaySinceSunday int // 0 = Sunday
	Day            int
	Month          int // 1 = January
	Year           int
	Hour           int
	Minute         int
	Second         int
}

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var months = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// ReadHTTPDate decodes a fixed-format RFC 1123 date at the cursor:
//
//	Fri, 21 Aug 2015 22:06:40 GMT
//
// Every token is validated against its closed set and exact width;
// the timezone must be the literal "GMT". The first failing token
// aborts the scan with ErrBadDate.
func (s *Scanner) ReadHTTPDate() (Timestamp, error) {
	ts := Timestamp{
		DaySinceSunday: -1,
		Day:            -1,
		Month:          -1,
		Year:           -1,
		Hour:           -1,
		Minute:         -1,
		Second:         -1,
	}

	tok, err := s.readExact(3)
	if err != nil {
		return ts, ErrBadDate
	}
	ts.DaySinceSunday = indexOf(weekdays, tok)
	if ts.DaySinceSunday < 0 {
		return ts, ErrBadDate
	}

	if err := s.expect(", "); err != nil {
		return ts, ErrBadDate
	}
	if ts.Day, err = s.readDigits(2); err != nil {
		return ts, ErrBadDate
	}
	if err := s.expect(" "); err != nil {
		return ts, ErrBadDate
	}

	tok, err = s.readExact(3)
	if err != nil {
		return ts, ErrBadDate
	}
	m := indexOf(months, tok)
	if m < 0 {
		return ts, ErrBadDate
	}
	ts.Month = m + 1

	if err := s.expect(" "); err != nil {
		return ts, ErrBadDate
	}
	if ts.Year, err = s.readDigits(4); err != nil {
		return ts, ErrBadDate
	}
	if err := s.expect(" "); err != nil {
		return ts, ErrBadDate
	}
	if ts.Hour, err = s.readDigits(2); err != nil {
		return ts, ErrBadDate
	}
	if err := s.expect(":"); err != nil {
		return ts, ErrBadDate
	}
	if ts.Minute, err = s.readDigits(2); err != nil {
		return ts, ErrBadDate
	}
	if err := s.expect(":"); err != nil {
		return ts, ErrBadDate
	}
	if ts.Second, err = s.readDigits(2); err != nil {
		return ts, ErrBadDate
	}
	if err := s.expect(" "); err != nil {
		return ts, ErrBadDate
	}
	if err := s.expect("GMT"); err != nil {
		return ts, ErrBadDate
	}

	return ts, nil
}

// ParseHTTPDate decodes a date from a header value string.
func ParseHTTPDate(value string) (Timestamp, error) {
	return New(strings.NewReader(value)).ReadHTTPDate()
}

func indexOf(set []string, tok string) int {
	for i, s := range set {
		if s == tok {
			return i
		}
	}
	return -1
}
