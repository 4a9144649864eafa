package telegraf

import (
	"sort"
	"strconv"
	"strings"

	"github.com/statsprof/statsprof/metrics"
)

// sanitizer substitutes characters that break Telegraf's line parser. Colon,
// underscore, and pipe are known to cause issues in metric names, values, and
// tags (https://github.com/influxdata/telegraf/issues/3508); whitespace is a
// delimiter in the line format itself.
var sanitizer = strings.NewReplacer(
	":", "-",
	"_", "-",
	"|", "-",
	" ", "-",
	"\t", "-",
	"\n", "-",
)

// Sanitize returns s with all characters reserved by the line format replaced
// with "-". Names are substituted, never rejected.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}

// EncodeLine serializes one measurement as a single line in the layout
// Telegraf's socket listener is configured to parse:
//
//	<name>[,<tag>=<value>,...] value=<value>\n
//
// Name, tag keys, and tag values are sanitized. Tags are ordered by key so the
// encoding is deterministic.
func EncodeLine(name string, tags metrics.Tags, value float64) string {
	var sb strings.Builder

	sb.WriteString(Sanitize(name))

	if len(tags) > 0 {
		keys := make([]string, 0, len(tags))
		for k := range tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			sb.WriteString(",")
			sb.WriteString(Sanitize(k))
			sb.WriteString("=")
			sb.WriteString(Sanitize(tags[k]))
		}
	}

	sb.WriteString(" value=")
	sb.WriteString(formatValue(value))
	sb.WriteString("\n")

	return sb.String()
}

// formatValue renders integral values without a decimal point.
func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
