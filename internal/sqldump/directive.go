package sqldump

import (
	"regexp"
	"strings"
)

// Precompiled patterns, immutable after init.
var (
	wsRun = regexp.MustCompile(`\s+`)

	// insert into <identifier>(<columns>) values <rest>
	// The identifier is any run of non-whitespace, non-paren characters, so
	// schema-qualified and backtick-quoted names pass through unchanged.
	insertShape = regexp.MustCompile(`(?is)^insert\s+into\s+([^\s(]+)\s*\(([^)]+)\)\s+values\s*(.+)$`)

	insertPrefix = regexp.MustCompile(`(?i)^insert\b`)
)

// IsInsert reports whether the statement starts with the INSERT keyword.
// Statements that are INSERT-shaped but fail directive extraction are still
// counted as inserts for diagnostic purposes.
func IsInsert(stmt string) bool {
	return insertPrefix.MatchString(strings.TrimSpace(stmt))
}

// ParseInsertDirective matches one statement against the
// INSERT INTO table(columns) VALUES tuples shape and extracts the table
// name, ordered column list, and the raw tuple-list text. The second result
// is false when the statement does not match; no partial extraction is
// attempted for malformed inserts.
func ParseInsertDirective(stmt RawStatement) (InsertDirective, bool) {
	clean := strings.TrimSpace(wsRun.ReplaceAllString(stmt.Text, " "))
	m := insertShape.FindStringSubmatch(clean)
	if m == nil {
		return InsertDirective{}, false
	}

	cols := strings.Split(m[2], ",")
	columns := make([]string, len(cols))
	for i, c := range cols {
		columns[i] = strings.TrimSpace(c)
	}

	return InsertDirective{
		Table:         strings.TrimSpace(m[1]),
		Columns:       columns,
		TupleListText: strings.TrimSpace(m[3]),
	}, true
}
