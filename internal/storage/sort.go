package storage

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/maruel/jsoncms/internal/entity"
)

// timeLayouts are tried in order when comparing temporal values.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
	"2006-01",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.Kitchen,
	"15:04:05",
	"15:04",
}

// ParseTime parses the date formats people type into forms. Values that do
// not parse are the zero time and so sort before every valid date.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Compare orders two values according to kind.
func Compare(kind entity.CompareKind, a, b string) int {
	switch kind {
	case entity.CompareTime:
		return ParseTime(a).Compare(ParseTime(b))
	case entity.CompareSecondToken:
		return strings.Compare(secondToken(a), secondToken(b))
	case entity.CompareNumeric:
		return cmp.Compare(leadingInt(a), leadingInt(b))
	case entity.CompareText:
		return strings.Compare(a, b)
	default:
		return strings.Compare(a, b)
	}
}

// SortRecords sorts rows in place by field. The sort is not stable.
func SortRecords(rows []*entity.Record, field entity.Field, dir entity.Direction) {
	slices.SortFunc(rows, func(a, b *entity.Record) int {
		c := Compare(field.Compare, a.Text(field.Name), b.Text(field.Name))
		if dir == entity.Descending {
			return cmp.Compare(0, c)
		}
		return c
	})
}

func secondToken(s string) string {
	if f := strings.Fields(s); len(f) > 1 {
		return f[1]
	}
	return ""
}
