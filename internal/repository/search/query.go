package search

import (
	"strconv"
	"strings"
)

// matchNone is a query no document satisfies.
const matchNone = "@" + fieldFields + ":{__none__}"

// and joins non-empty parts with intersection.
func and(parts ...string) string {
	kept := nonEmpty(parts)
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	}
	return "(" + strings.Join(kept, " ") + ")"
}

// or joins non-empty parts with union.
func or(parts ...string) string {
	kept := nonEmpty(parts)
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	}
	return "(" + strings.Join(kept, " | ") + ")"
}

func not(q string) string {
	if q == "" {
		return ""
	}
	return "-(" + q + ")"
}

func nonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// tag matches any of patterns, which must already be escaped.
func tag(field string, patterns ...string) string {
	if len(patterns) == 0 {
		return matchNone
	}
	return "@" + field + ":{" + strings.Join(patterns, " | ") + "}"
}

// tagValues escapes values and matches any of them.
func tagValues(field string, values ...string) string {
	patterns := make([]string, len(values))
	for i, v := range values {
		patterns[i] = escapeTag(v)
	}
	return tag(field, patterns...)
}

func tagIDs(field string, ids ...int64) string {
	patterns := make([]string, len(ids))
	for i, id := range ids {
		patterns[i] = strconv.FormatInt(id, 10)
	}
	return tag(field, patterns...)
}

// numeric builds an inclusive range; exclusive bounds carry a "(".
func numeric(field, lo, hi string) string {
	return "@" + field + ":[" + lo + " " + hi + "]"
}

func escapeTag(s string) string { return tagEscaper.Replace(s) }

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	"?", "\\?",
	" ", "\\ ",
)
