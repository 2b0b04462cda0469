// Package query turns catalogue search filters into URL query strings.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CollectionPlaceholder is substituted by WithCollection.
const CollectionPlaceholder = "{collection_id}"

const timestampLayout = "2006-01-02T15:04:05Z"

// ErrTemplate is matched by every *TemplateError.
var ErrTemplate = errors.New("query: invalid url template")

// TemplateError reports a collection-templated URL that cannot be expanded.
type TemplateError struct {
	Template string
	Reason   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("query: template %q: %s", e.Template, e.Reason)
}

func (e *TemplateError) Unwrap() error { return ErrTemplate }

// Filter holds the user-supplied search constraints. Empty strings and nil
// pointers are absent and never emitted.
type Filter struct {
	IDs         string
	Collections string
	BBox        string
	From        *time.Time
	To          *time.Time
	SortBy      string
	Limit       *uint16
	Page        *uint16
}

// IsZero reports whether no field is set.
func (f Filter) IsZero() bool {
	_, ok := Build(f, true)
	return !ok
}

// Build renders f as a query string. Terms are emitted in a fixed order:
// ids, bbox, datetime, sortby, limit, page and, when includeCollections is
// set, collections. It returns false when no term is present, in which case
// the request must carry no query component at all.
func Build(f Filter, includeCollections bool) (string, bool) {
	var terms []string
	add := func(key, value string) {
		terms = append(terms, key+"="+escapeValue(value))
	}

	if f.IDs != "" {
		add("ids", f.IDs)
	}
	if f.BBox != "" {
		add("bbox", f.BBox)
	}
	if f.From != nil || f.To != nil {
		add("datetime", Interval(f.From, f.To))
	}
	if f.SortBy != "" {
		add("sortby", f.SortBy)
	}
	if f.Limit != nil {
		add("limit", strconv.FormatUint(uint64(*f.Limit), 10))
	}
	if f.Page != nil {
		add("page", strconv.FormatUint(uint64(*f.Page), 10))
	}
	if includeCollections && f.Collections != "" {
		add("collections", f.Collections)
	}

	if len(terms) == 0 {
		return "", false
	}
	return strings.Join(terms, "&"), true
}

// Interval formats a datetime interval "from/to". An absent side is left
// empty, producing an open-ended interval.
func Interval(from, to *time.Time) string {
	return FormatTimestamp(from) + "/" + FormatTimestamp(to)
}

// FormatTimestamp renders t as an RFC3339 UTC timestamp truncated to whole
// seconds with a trailing Z. A nil time renders as "".
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(timestampLayout)
}

// Apply attaches the query built from f to rawURL, replacing any existing
// query component. When f is empty the URL is returned without a query.
func Apply(rawURL string, f Filter, includeCollections bool) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("query: parse %q: %w", rawURL, err)
	}
	u.ForceQuery = false
	u.RawQuery = ""
	if q, ok := Build(f, includeCollections); ok {
		u.RawQuery = q
	}
	return u.String(), nil
}

// WithCollection expands a collection-templated endpoint.
func WithCollection(template, collectionID string) (string, error) {
	if !strings.Contains(template, CollectionPlaceholder) {
		return "", &TemplateError{Template: template, Reason: "no " + CollectionPlaceholder + " placeholder"}
	}
	if strings.TrimSpace(collectionID) == "" {
		return "", &TemplateError{Template: template, Reason: "collection id is required"}
	}
	return strings.ReplaceAll(template, CollectionPlaceholder, url.PathEscape(collectionID)), nil
}

// escapeValue percent-encodes only the bytes that cannot appear literally in
// a query component. Separators used by the catalogue (",", ":", "/", "+",
// "-") are kept as-is.
func escapeValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func shouldEscape(c byte) bool {
	if c <= 0x20 || c >= 0x7f {
		return true
	}
	switch c {
	case '"', '#', '&', '<', '>', '`', '%', '\\', '^', '{', '}', '|':
		return true
	}
	return false
}
