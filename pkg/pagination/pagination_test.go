// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/pkg/pagination"
)

/*
TestFromRequest covers defaults and parse failures.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    pagination.Params
		wantErr error
	}{
		{"defaults", "", pagination.Params{Page: 1, PageSize: 20}, nil},
		{"explicit", "?page_number=3&page_size=50", pagination.Params{Page: 3, PageSize: 50}, nil},
		{"out_of_range_is_kept", "?page_number=0&page_size=500", pagination.Params{Page: 0, PageSize: 500}, nil},
		{"bad_page", "?page_number=abc", pagination.Params{}, pagination.ErrInvalidPage},
		{"bad_size", "?page_size=1.5", pagination.Params{}, pagination.ErrInvalidPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := pagination.FromRequest(httptest.NewRequest("GET", "/sessions"+tt.query, nil))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, params)
		})
	}
}

/*
TestParams_Validate checks the inclusive bounds.
*/
func TestParams_Validate(t *testing.T) {
	assert.NoError(t, pagination.Params{Page: 1, PageSize: 1}.Validate())
	assert.NoError(t, pagination.Params{Page: 9, PageSize: 100}.Validate())
	assert.ErrorIs(t, pagination.Params{Page: 0, PageSize: 10}.Validate(), pagination.ErrInvalidPage)
	assert.ErrorIs(t, pagination.Params{Page: -1, PageSize: 10}.Validate(), pagination.ErrInvalidPage)
	assert.ErrorIs(t, pagination.Params{Page: 1, PageSize: 0}.Validate(), pagination.ErrInvalidPageSize)
	assert.ErrorIs(t, pagination.Params{Page: 1, PageSize: 101}.Validate(), pagination.ErrInvalidPageSize)
}

func TestParams_OffsetAndMeta(t *testing.T) {
	params := pagination.Params{Page: 3, PageSize: 10}
	assert.Equal(t, 20, params.Offset())

	meta := pagination.NewMeta(params, 21)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 21, meta.Total)

	assert.Equal(t, 0, pagination.NewMeta(pagination.Params{Page: 1, PageSize: 10}, 0).TotalPages)
}

/*
TestParams_Offset_Saturates keeps the offset non-negative for any page that
passes validation.
*/
func TestParams_Offset_Saturates(t *testing.T) {
	tests := []struct {
		name   string
		params pagination.Params
		want   int
	}{
		{"first_page", pagination.Params{Page: 1, PageSize: 100}, 0},
		{"largest_exact", pagination.Params{Page: math.MaxInt/100 + 1, PageSize: 100}, math.MaxInt / 100 * 100},
		{"overflowing", pagination.Params{Page: math.MaxInt / 50, PageSize: 100}, math.MaxInt},
		{"max_page", pagination.Params{Page: math.MaxInt, PageSize: 2}, math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.params.Validate())
			assert.Equal(t, tt.want, tt.params.Offset())
		})
	}
}
