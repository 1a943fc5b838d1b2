// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// It standardizes how page-based navigation is requested via query parameters
// and how the resulting metadata is delivered in the API response envelope.
// Out-of-range values are reported, not clamped.
package pagination

import (
	"errors"
	"math"
	"net/http"
	"strconv"
)

const (
	// DefaultPageSize is the number of items per page if not specified.
	DefaultPageSize = 20
	// MaxPageSize is the upper bound for items per page.
	MaxPageSize = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1

	// QueryPage and QueryPageSize are the query-string keys.
	QueryPage     = "page_number"
	QueryPageSize = "page_size"
)

var (
	// ErrInvalidPage is returned for a page number below 1 or a non-integer value.
	ErrInvalidPage = errors.New("pagination: page_number must be an integer >= 1")

	// ErrInvalidPageSize is returned for a page size outside [1, MaxPageSize].
	ErrInvalidPageSize = errors.New("pagination: page_size must be an integer between 1 and 100")
)

// Params holds a requested page and page size.
type Params struct {
	Page     int
	PageSize int
}

// Validate checks the bounds. It never adjusts the values.
func (p Params) Validate() error {
	if p.Page < 1 {
		return ErrInvalidPage
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return ErrInvalidPageSize
	}
	return nil
}

// Offset returns the SQL OFFSET value derived from [Page] and [PageSize].
// It saturates at math.MaxInt instead of overflowing, so an absurd page number
// still reads as past the end.
func (p Params) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	Page       int `json:"page_number"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta constructs pagination metadata for a response.
//
// It automatically calculates the TotalPages based on the total count and page size.
func NewMeta(params Params, total int) Meta {
	totalPages := 0
	if params.PageSize > 0 {
		totalPages = (total + params.PageSize - 1) / params.PageSize
	}

	return Meta{
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// FromRequest parses "page_number" and "page_size" from an HTTP request.
//
// Absent keys fall back to [DefaultPage] and [DefaultPageSize]. Present keys
// that are not integers are errors; range checking is left to [Params.Validate].
func FromRequest(r *http.Request) (Params, error) {
	page, err := parseIntParam(r, QueryPage, DefaultPage)
	if err != nil {
		return Params{}, ErrInvalidPage
	}

	pageSize, err := parseIntParam(r, QueryPageSize, DefaultPageSize)
	if err != nil {
		return Params{}, ErrInvalidPageSize
	}

	return Params{Page: page, PageSize: pageSize}, nil
}

// parseIntParam parses a single integer query parameter with a fallback default.
func parseIntParam(r *http.Request, key string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(raw)
}
