// Package phase parses phase expressions: the textual phase sets found in AvailableSlots and
// PreferredPhases cells.
//
// Three forms are accepted, tried in order:
//
//	[1,3,5]   JSON array (elements coerced to numbers)
//	2-4       inclusive range
//	1,3,5     comma list (malformed elements become NaN)
//
// Parsing only fails for a broken JSON array or a broken range. Element validity is a separate
// question answered by Valid.
package phase

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed reports an expression that matches no form.
var ErrMalformed = errors.New("malformed phase expression")

// maxRangeSpan bounds range expansion; a longer span is malformed.
const maxRangeSpan = 10000

// maxRangeEndpoint bounds the magnitude of a range endpoint.
const maxRangeEndpoint = math.MaxInt32

var (
	decimalPattern  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	infinityPattern = regexp.MustCompile(`^([+-]?)Infinity$`)
	prefixedPattern = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[bB][01]+|[oO][0-7]+)$`)
)

// Parse resolves expr using the full grammar. An empty expression yields no phases.
func Parse(expr string) ([]float64, error) {
	if expr == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(expr)
	if strings.HasPrefix(trimmed, "[") {
		return parseArray(trimmed)
	}
	if strings.Contains(trimmed, "-") {
		return parseRange(trimmed)
	}
	return parseComma(trimmed), nil
}

// ParseList accepts only the JSON array and comma list forms.
func ParseList(expr string) ([]float64, error) {
	if expr == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(expr)
	if strings.HasPrefix(trimmed, "[") {
		return parseArray(trimmed)
	}
	return parseComma(trimmed), nil
}

// Valid reports whether v names a phase: a finite integer >= 1.
func Valid(v float64) bool {
	return IsInteger(v) && v >= 1
}

// Ints keeps the valid phases of vs, in order.
func Ints(vs []float64) []int {
	out := make([]int, 0, len(vs))
	for _, v := range vs {
		if Valid(v) {
			out = append(out, int(v))
		}
	}
	return out
}

// Number reads a numeric cell: surrounding space is ignored and empty text is 0. Accepted
// spellings are signed decimals with an optional exponent, "Infinity" with an optional sign, and
// unsigned 0x, 0b or 0o integers. Anything else is NaN.
func Number(s string) float64 {
	t := strings.TrimSpace(s)
	switch {
	case t == "":
		return 0
	case decimalPattern.MatchString(t):
		v, err := strconv.ParseFloat(t, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return math.NaN()
		}
		return v
	case infinityPattern.MatchString(t):
		if t[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	case prefixedPattern.MatchString(t):
		v, err := strconv.ParseUint(t, 0, 64)
		if err != nil {
			// Too wide for 64 bits; the float reading keeps the magnitude.
			f, _ := new(big.Float).SetString(t)
			if f == nil {
				return math.NaN()
			}
			out, _ := f.Float64()
			return out
		}
		return float64(v)
	default:
		return math.NaN()
	}
}

// IsInteger reports whether v is a finite whole number.
func IsInteger(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v == math.Trunc(v)
}

func parseArray(s string) ([]float64, error) {
	var raw []any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, ErrMalformed
	}
	out := make([]float64, 0, len(raw))
	for _, el := range raw {
		out = append(out, coerce(el))
	}
	return out, nil
}

func parseRange(s string) ([]float64, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return nil, ErrMalformed
	}
	start, end := Number(parts[0]), Number(parts[1])
	if math.IsNaN(start) || math.IsNaN(end) || start > end {
		return nil, ErrMalformed
	}
	if math.Abs(start) > maxRangeEndpoint || math.Abs(end) > maxRangeEndpoint || end-start > maxRangeSpan {
		return nil, ErrMalformed
	}
	n := int(math.Floor(end - start))
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, start+float64(i))
	}
	return out, nil
}

func parseComma(s string) []float64 {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		out = append(out, Number(p))
	}
	return out
}

func coerce(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		return Number(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case nil:
		return 0
	default:
		return math.NaN()
	}
}
