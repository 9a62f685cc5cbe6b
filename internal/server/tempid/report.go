package tempid

import (
	"encoding/json"
	"math"
)

// ReportFromValues builds a ContactReport from loosely typed values as they
// come out of a JSON or protobuf Struct decoder. A timestamp or signal
// strength that is not an integral number is left nil, which Decode rejects.
func ReportFromValues(token, contactTimestamp, signalStrength any) ContactReport {
	var r ContactReport
	if s, ok := token.(string); ok {
		r.Token = s
	}
	r.ContactTimestamp = integral(contactTimestamp)
	r.SignalStrength = integral(signalStrength)
	return r
}

// ReportFromMap is ReportFromValues over a decoded JSON object using the
// wire field names token, contact_timestamp and signal_strength.
func ReportFromMap(m map[string]any) ContactReport {
	return ReportFromValues(m["token"], m["contact_timestamp"], m["signal_strength"])
}

func integral(v any) *int64 {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil
		}
		n = i
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return nil
		}
		if x < math.MinInt64 || x >= math.MaxInt64 {
			return nil
		}
		n = int64(x)
	default:
		return nil
	}
	return &n
}
