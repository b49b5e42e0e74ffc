package duration_test

import (
	"testing"

	"github.com/minoots/engine/internal/duration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Strings(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"5m", 300000},
		{"2h", 7200000},
		{"500ms", 500},
		{"1d", 86400000},
		{"30s", 30000},
		{"5M", 300000},
	}

	for _, tc := range cases {
		got, err := duration.Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParse_Integers(t *testing.T) {
	got, err := duration.Parse(300000)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), got)

	got, err = duration.Parse(int64(0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestParse_Invalid(t *testing.T) {
	_, err := duration.Parse("bogus")
	assert.Error(t, err)

	_, err = duration.Parse("-5m")
	assert.Error(t, err)

	_, err = duration.Parse(int64(-1))
	assert.Error(t, err)

	_, err = duration.Parse("5y")
	assert.Error(t, err)

	_, err = duration.Parse(true)
	assert.Error(t, err)
}

func TestParse_RoundTrip(t *testing.T) {
	got, err := duration.Parse("5m")
	require.NoError(t, err)
	assert.Equal(t, int64(300000), got)

	got2, err := duration.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, got, got2)
}
