// Package utils holds small helpers shared by the handler and service layers.
package utils

import "strconv"

// Page bounds for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// ParsePage reads raw page and page_size values. A missing or unparseable
// page is 1 and a missing or unparseable size is DefaultPageSize. Numbers
// are then clamped: page to at least 1, size to [1, MaxPageSize].
func ParsePage(page, size string) Page {
	p := Page{
		Number: AtoiDefault(page, 1),
		Size:   AtoiDefault(size, DefaultPageSize),
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 1
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows preceding the page.
func (p Page) Offset() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// TotalPages is the page count needed to show total rows at p.Size per page.
func (p Page) TotalPages(total int64) int {
	if total <= 0 || p.Size < 1 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a valid int. Surrounding whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
