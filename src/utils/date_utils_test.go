package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"already iso", "2024-03-01", "2024-03-01", false},
		{"us slash form", "03/01/2024", "2024-03-01", false},
		{"long month form", "March 1, 2024", "2024-03-01", false},
		{"short month form", "Mar 1, 2024", "2024-03-01", false},
		{"padded input", "  2024-03-01  ", "2024-03-01", false},
		{"empty stays empty", "", "", false},
		{"garbage", "not a date", "", true},
		{"iso with time rejected", "2024-03-01T10:00:00Z", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeDate(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCompactAccession(t *testing.T) {
	assert.Equal(t, "000120919124012345", CompactAccession("0001209191-24-012345"))
	assert.Equal(t, "000120919124012345", CompactAccession("000120919124012345"))
}

func TestFormatAccession(t *testing.T) {
	assert.Equal(t, "0001209191-24-012345", FormatAccession("000120919124012345"))
	assert.Equal(t, "0001209191-24-012345", FormatAccession("0001209191-24-012345"))
	assert.Equal(t, "0000000000-00-000042", FormatAccession("42"))
}

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 12500.0, RoundFloat(12500.0000001, 2))
	assert.Equal(t, 10.13, RoundFloat(10.125, 2))
	assert.Equal(t, -2.5, RoundFloat(-2.4999999999, 1))
}
