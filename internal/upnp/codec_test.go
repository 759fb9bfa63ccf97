package upnp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{3*time.Minute + 25*time.Second, "00:03:25"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{123*time.Hour + 4*time.Second, "123:00:04"},
		{1500 * time.Millisecond, "00:00:01"},
		{-5 * time.Second, "00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "00:00:10", FormatDelta(10*time.Second))
	assert.Equal(t, "-00:00:10", FormatDelta(-10*time.Second))
	assert.Equal(t, "-01:00:00", FormatDelta(-time.Hour))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "zero", in: "00:00:00", want: 0},
		{name: "minutes", in: "0:03:25", want: 205 * time.Second},
		{name: "long hours", in: "100:00:01", want: 100*time.Hour + time.Second},
		{name: "two parts", in: "03:25", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "not implemented", in: "NOT_IMPLEMENTED", wantErr: true},
		{name: "letters", in: "00:aa:00", wantErr: true},
		{name: "fraction", in: "00:00:01.5", wantErr: true},
		{name: "longest duration", in: "2562047:47:16", want: 2562047*time.Hour + 47*time.Minute + 16*time.Second},
		{name: "hours overflow", in: "5124095576030432:00:00", wantErr: true},
		{name: "sum overflows", in: "2562047:47:17", wantErr: true},
		{name: "seconds overflow", in: "0:00:18446744073709551615", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindParse), "want parse error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	for _, secs := range []int{0, 1, 59, 60, 3599, 3600, 86399, 360000} {
		d := time.Duration(secs) * time.Second
		got, err := ParseDuration(FormatDuration(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestParseBool(t *testing.T) {
	v, err := ParseBool("1")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ParseBool("0")
	require.NoError(t, err)
	assert.False(t, v)

	for _, bad := range []string{"true", "false", "", "2", " 1"} {
		_, err := ParseBool(bad)
		assert.True(t, IsKind(err, KindParse), "input %q", bad)
	}
}

func TestResponse(t *testing.T) {
	resp := Response{
		"CurrentVolume": "42",
		"Big":           "70000",
		"CurrentBass":   "-7",
		"CurrentMute":   "1",
		"RelTime":       "0:01:02",
		"Empty":         "",
	}

	v, err := resp.Uint("CurrentVolume", 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	_, err = resp.Uint("Big", 16)
	assert.True(t, IsKind(err, KindParse))

	b, err := resp.Int("CurrentBass", 16)
	require.NoError(t, err)
	assert.Equal(t, int64(-7), b)

	m, err := resp.Bool("CurrentMute")
	require.NoError(t, err)
	assert.True(t, m)

	d, err := resp.Duration("RelTime")
	require.NoError(t, err)
	assert.Equal(t, 62*time.Second, d)

	s, err := resp.Extract("Empty")
	require.NoError(t, err)
	assert.Equal(t, "", s)

	bad := Response{"TrackDuration": "x", "CurrentMute": "yes"}
	_, err = bad.Duration("TrackDuration")
	assert.EqualError(t, err, `[PARSE] TrackDuration: invalid value "x"`)
	_, err = bad.Bool("CurrentMute")
	assert.EqualError(t, err, `[PARSE] CurrentMute: invalid value "yes"`)

	_, err = resp.Extract("Nope")
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindMissingElement, e.Kind)
	assert.Equal(t, "Nope", e.Element)
	assert.Equal(t, "UPnP Response", e.Context)
}
