// Package indexer projects parsed records into search documents and ships
// them to Elasticsearch over the bulk API.
package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/fuhsing/sqlingest/internal/sqldump"
)

// Document is one search-indexable projection of a parsed record.
type Document struct {
	Index  string
	ID     string
	Fields map[string]any
}

// Project converts one record into a document.
//
// The document ID is derived from source, table, and record index, so
// re-importing the same file overwrites rather than duplicates. Column
// values land under field_<column> keys; a searchable_content field carries
// the concatenated display values for full-text queries. The index name
// is date-partitioned: erp-<table>-YYYY.MM.DD.
func Project(rec sqldump.Record, now time.Time) Document {
	fields := map[string]any{
		"source_file":  rec.SourceID,
		"table_name":   rec.Table,
		"record_index": rec.RecordIndex,
		"imported_at":  now.UTC().Format(time.RFC3339),
	}

	var searchable []string
	for i, col := range rec.Columns {
		key := "field_" + strings.ToLower(col)
		if i >= len(rec.Values) {
			fields[key] = nil
			continue
		}
		v := rec.Values[i]
		switch v.Kind {
		case sqldump.KindNull:
			fields[key] = nil
		case sqldump.KindInt:
			fields[key] = v.Int
		case sqldump.KindFloat:
			fields[key] = v.Float
		default:
			fields[key] = v.Str
		}
		if s := v.String(); s != "" {
			searchable = append(searchable, s)
		}
	}
	fields["searchable_content"] = strings.Join(searchable, " ")

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s::%s::%d", rec.SourceID, rec.Table, rec.RecordIndex)))

	return Document{
		Index:  fmt.Sprintf("erp-%s-%s", strings.ToLower(rec.Table), now.UTC().Format("2006.01.02")),
		ID:     hex.EncodeToString(sum[:]),
		Fields: fields,
	}
}

// ProjectAll maps records to documents with a shared timestamp.
func ProjectAll(records []sqldump.Record, now time.Time) []Document {
	docs := make([]Document, len(records))
	for i, rec := range records {
		docs[i] = Project(rec, now)
	}
	return docs
}
