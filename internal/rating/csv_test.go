package rating

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_PreservesOrder(t *testing.T) {
	t.Parallel()

	in := "6,2,4,1289241911.72836\n6,5,2,1289241941.53378\n1,15,1,1289243140\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	want := []Record{
		{Source: 6, Target: 2, Rating: 4, Time: 1289241911},
		{Source: 6, Target: 5, Rating: 2, Time: 1289241941},
		{Source: 1, Target: 15, Rating: 1, Time: 1289243140},
	}
	assert.Equal(t, want, got)
}

func TestReadCSV_NegativeRatingsAndSpaces(t *testing.T) {
	t.Parallel()

	got, err := ReadCSV(strings.NewReader("7, 8, -10, 100\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, -10, got[0].Rating)
	assert.Equal(t, int64(100), got[0].Time)
}

func TestReadCSV_Empty(t *testing.T) {
	t.Parallel()

	got, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadCSV_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		line   int
		column string
	}{
		{"too few fields", "1,2,3,100\n1,2,3\n", 2, ""},
		{"non-integer source", "a,2,3,100\n", 1, "source"},
		{"non-integer rating", "1,2,3.5,100\n", 1, "rating"},
		{"bad time", "1,2,3,soon\n", 1, "time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord), "error %v should wrap ErrMalformedRecord", err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.column, pe.Column)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ratings.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,2,3,100\n2,3,4,200\n"), 0o644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rating: open")
}
