package resolver

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// splitList splits a multi-valued field, trimming elements, dropping empties
// and duplicates while keeping first appearance.
func splitList(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return core.UniqueStrings(out)
}

// convert validates raw against kind and returns its canonical value.
// ok is false when a typed scalar does not parse or a list is empty.
func convert(kind core.ValueKind, raw, sep string) (core.Value, bool) {
	switch kind {
	case core.KindList:
		items := splitList(raw, sep)
		if len(items) == 0 {
			return core.Value{}, false
		}
		return core.ListValue(items...), true
	case core.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return core.Value{}, false
		}
		return core.StringValue(strconv.FormatInt(n, 10)), true
	case core.KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return core.Value{}, false
		}
		return core.StringValue(strconv.FormatFloat(f, 'g', -1, 64)), true
	case core.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return core.Value{}, false
		}
		return core.StringValue(strconv.FormatBool(b)), true
	default:
		return core.StringValue(raw), true
	}
}
