package utils

import (
	"fmt"
	"strings"
	"time"
)

// ISODateFormat is the normalized calendar form every trade and filed date is
// stored in. ISO dates compare correctly as plain strings, which the linking
// engine relies on.
const ISODateFormat = "2006-01-02"

var acceptedDateFormats = []string{
	ISODateFormat,
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// NormalizeDate parses a date in any accepted form and returns it in ISO
// form. An empty input stays empty (absent data, not an error).
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range acceptedDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODateFormat), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

// CompactAccession strips the dashes from an accession number, the form used
// inside event ids.
func CompactAccession(accession string) string {
	return strings.ReplaceAll(accession, "-", "")
}

// FormatAccession renders an accession number in its dashed 18-digit form,
// e.g. 0001209191-21-038188.
func FormatAccession(accession string) string {
	acc := CompactAccession(accession)
	for len(acc) < 18 {
		acc = "0" + acc
	}
	return fmt.Sprintf("%s-%s-%s", acc[:10], acc[10:12], acc[12:])
}
