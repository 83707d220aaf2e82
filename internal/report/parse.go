package report

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseScore coerces a raw answer value to a finite score. Its domain is
// finite reals; everything else (nil, NaN, infinities, unparseable
// strings, unexpected types) collapses to 0. It never fails.
func ParseScore(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return finiteOrZero(v)
	case float32:
		return finiteOrZero(float64(v))
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return finiteOrZero(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return finiteOrZero(f)
	case []byte:
		return ParseScore(string(v))
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
