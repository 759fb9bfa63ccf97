package upnp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const responseContext = "UPnP Response"

// maxSeconds is the longest whole-second span a time.Duration holds
const maxSeconds = uint64(math.MaxInt64 / int64(time.Second))

// FormatDuration renders d as HH:MM:SS. Hours are unbounded, sub-second
// precision is dropped and negative values render as 00:00:00.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := uint64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// FormatDelta renders a signed offset for relative seeks, e.g. -00:00:10.
func FormatDelta(d time.Duration) string {
	if d < 0 {
		return "-" + FormatDuration(-d)
	}
	return FormatDuration(d)
}

// ParseDuration decodes HH:MM:SS. Anything with fewer than three components,
// a non-numeric component or a span too long for time.Duration is rejected.
func ParseDuration(s string) (time.Duration, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return 0, ParseError("duration", s, nil)
	}
	var fields [3]uint64
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return 0, ParseError("duration", s, err)
		}
		fields[i] = v
	}
	if fields[0] > maxSeconds/3600 || fields[1] > maxSeconds/60 || fields[2] > maxSeconds {
		return 0, ParseError("duration", s, nil)
	}
	secs := fields[0]*3600 + fields[1]*60 + fields[2]
	if secs > maxSeconds {
		return 0, ParseError("duration", s, nil)
	}
	return time.Duration(secs) * time.Second, nil
}

// FormatBool renders b the only way the protocol understands: 0 or 1.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool accepts exactly 0 or 1.
func ParseBool(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, ParseError("boolean", s, nil)
}

// Response is a decoded action response: output argument name to text.
type Response map[string]string

// Extract returns a required field.
func (r Response) Extract(field string) (string, error) {
	v, ok := r[field]
	if !ok {
		return "", MissingElement(responseContext, field)
	}
	return v, nil
}

// Uint extracts field and decodes it as an unsigned integer of the given bit size.
func (r Response) Uint(field string, bits int) (uint64, error) {
	v, err := r.Extract(field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, bits)
	if err != nil {
		return 0, ParseError(field, v, err)
	}
	return n, nil
}

// Int extracts field and decodes it as a signed integer of the given bit size.
func (r Response) Int(field string, bits int) (int64, error) {
	v, err := r.Extract(field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, bits)
	if err != nil {
		return 0, ParseError(field, v, err)
	}
	return n, nil
}

// Bool extracts field and decodes it as 0/1.
func (r Response) Bool(field string) (bool, error) {
	v, err := r.Extract(field)
	if err != nil {
		return false, err
	}
	b, err := ParseBool(v)
	if err != nil {
		return false, inField(err, field)
	}
	return b, nil
}

// Duration extracts field and decodes it as HH:MM:SS.
func (r Response) Duration(field string) (time.Duration, error) {
	v, err := r.Extract(field)
	if err != nil {
		return 0, err
	}
	d, err := ParseDuration(v)
	if err != nil {
		return 0, inField(err, field)
	}
	return d, nil
}

// inField renames the context of a codec error to the response field it came from
func inField(err error, field string) error {
	var e *Error
	if errors.As(err, &e) {
		e.Context = field
	}
	return err
}
