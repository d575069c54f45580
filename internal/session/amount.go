package session

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// amountPrefixRegex matches the longest leading decimal literal, the way a
// browser's parseFloat reads "12.5abc" as 12.5.
var amountPrefixRegex = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseAmount converts a form amount to a number without validating it.
// Input with no numeric prefix yields NaN.
func ParseAmount(raw string) float64 {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	prefix := amountPrefixRegex.FindString(s)
	if prefix == "" {
		return math.NaN()
	}

	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}
