package state

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-reactive/internal/tree"
)

// NormalizeID converts a list element id into its canonical key. Strings are
// kept as is and integral numbers are formatted without a fractional part,
// so 4, int64(4), 4.0 and "4" all address the same element.
func NormalizeID(id any) (string, error) {
	normalized, err := tree.Normalize(id)
	if err != nil {
		return "", fmt.Errorf("%w: id %v: %v", ErrUnsupportedValue, id, err)
	}
	switch typed := normalized.(type) {
	case nil:
		return "", ErrMissingID
	case string:
		if strings.TrimSpace(typed) == "" {
			return "", ErrMissingID
		}
		return typed, nil
	case bool:
		return "", fmt.Errorf("%w: id must be a string or a number, got bool", ErrUnsupportedValue)
	}
	if integer, ok := tree.Int(normalized); ok {
		return strconv.FormatInt(integer, 10), nil
	}
	if number, ok := tree.Number(normalized); ok {
		if math.IsNaN(number) || math.IsInf(number, 0) {
			return "", fmt.Errorf("%w: id %v is not a finite number", ErrUnsupportedValue, number)
		}
		return strconv.FormatFloat(number, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("%w: id must be a string or a number, got %T", ErrUnsupportedValue, normalized)
}
