package sqldump

import (
	"regexp"
	"strconv"
	"strings"
)

// quotedLiteral extracts the single-quoted substring of a DATE/TIMESTAMP
// keyword literal. Precompiled, immutable after init.
var quotedLiteral = regexp.MustCompile(`'([^']+)'`)

// Coerce converts one raw token into a TypedValue by ordered rules, first
// match wins:
//
//  1. NULL in any letter case.
//  2. N'...' Unicode-string prefix: prefix and trailing quote stripped.
//  3. '...' plain string: outer quotes stripped. Doubled or
//     backslash-escaped quotes inside are kept unresolved.
//  4. Integer (no dot), else float (contains a dot).
//  5. DATE/TIMESTAMP keyword literal: the quoted substring.
//  6. Raw fallback, token unchanged.
//
// The second result is false when only the fallback matched. Coercion never
// fails.
func Coerce(token string) (TypedValue, bool) {
	t := strings.TrimSpace(token)

	if strings.EqualFold(t, "NULL") {
		return Null(), true
	}

	if strings.HasPrefix(t, "N'") || strings.HasPrefix(t, "n'") {
		inner := t[2:]
		inner = strings.TrimSuffix(inner, "'")
		return Text(inner), true
	}

	if len(t) >= 2 && t[0] == '\'' && t[len(t)-1] == '\'' {
		return Text(t[1 : len(t)-1]), true
	}

	if strings.Contains(t, ".") {
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return Float64(f), true
		}
	} else if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return Int64(i), true
	}

	upper := strings.ToUpper(t)
	if strings.HasPrefix(upper, "DATE") || strings.HasPrefix(upper, "TIMESTAMP") {
		if m := quotedLiteral.FindStringSubmatch(t); m != nil {
			return Date(m[1]), true
		}
	}

	return Raw(t), false
}
