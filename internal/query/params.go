// Package query turns optional query-string parameters into squirrel
// predicates, ordering and paging for the listing endpoints. Malformed values
// never fail a request: they are treated as absent.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit within int on every platform.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before the page starts.
func (p Page) Offset() uint64 {
	return uint64((p.Page - 1) * p.Limit)
}

// ParsePage reads page and limit, falling back to DefaultPage and defaultLimit
// for missing, malformed or non-positive values. page is capped at MaxPage.
func ParsePage(values url.Values, defaultLimit int) Page {
	page := DefaultPage
	if v, ok := intParam(values, "page"); ok && v > 0 {
		page = v
	}
	if page > MaxPage {
		page = MaxPage
	}

	limit := defaultLimit
	if v, ok := intParam(values, "limit"); ok && v > 0 {
		limit = v
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Page{Page: page, Limit: limit}
}

func stringParam(values url.Values, key string) string {
	return strings.TrimSpace(values.Get(key))
}

func intParam(values url.Values, key string) (int, bool) {
	raw := stringParam(values, key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func floatParam(values url.Values, key string) *float64 {
	raw := stringParam(values, key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func boolParam(values url.Values, key string) *bool {
	raw := stringParam(values, key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func uuidParam(values url.Values, key string) *uuid.UUID {
	raw := stringParam(values, key)
	if raw == "" {
		return nil
	}
	v, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds an ILIKE pattern matching s as a literal substring.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
