// Package rowstore provides a generic "select rows" capability against a
// tabular store. Rows come back as loosely-typed mappings; callers apply
// their own field fallback chains through the Row accessors.
package rowstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// Table names in the backing store.
const (
	TableAssessments = "assessments"
	TableAnswers     = "assessment_answers"
	TableQuestions   = "questions"
	TableCategories  = "categories"
)

// ErrNotConfigured is returned by callers that have no store wired at
// all; the REST client itself never returns it.
var ErrNotConfigured = errors.New("rowstore: no backing store configured")

// Row is one record from the store, untyped as delivered.
type Row map[string]any

// Selector is the single capability the report pipeline needs from a
// backing store.
type Selector interface {
	Select(ctx context.Context, table string, params url.Values) ([]Row, error)
}

// String returns the first of keys whose value is a non-empty string,
// or def when none qualifies. Non-string values never match; the caller
// decides what a non-string in a string field means.
func (r Row) String(def string, keys ...string) string {
	for _, k := range keys {
		if s, ok := r[k].(string); ok && s != "" {
			return s
		}
	}
	return def
}

// Value returns the first of keys that is present and non-nil.
func (r Row) Value(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Key stringifies an identifier field. JSON numbers arrive as float64;
// integral ones format without a fraction so numeric and string ids
// compare equal across tables.
func (r Row) Key(field string) string {
	switch v := r[field].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Eq builds the store's equality filter expression for a column value.
func Eq(value string) string {
	return "eq." + value
}
