package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQueryParams(t *testing.T) {
	cases := []struct {
		name             string
		page, size       int
		wantPage, wantSz int
		wantOffset       int
	}{
		{name: "defaults", page: 0, size: 0, wantPage: 1, wantSz: 20, wantOffset: 0},
		{name: "second page", page: 2, size: 10, wantPage: 2, wantSz: 10, wantOffset: 10},
		{name: "clamped size", page: 1, size: 500, wantPage: 1, wantSz: 100, wantOffset: 0},
		{name: "negative page", page: -3, size: 5, wantPage: 1, wantSz: 5, wantOffset: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewQueryParams(tc.page, tc.size, 20, 100)
			assert.Equal(t, tc.wantPage, p.PageNumber)
			assert.Equal(t, tc.wantSz, p.PageSize)
			assert.Equal(t, tc.wantOffset, p.Offset())
		})
	}
}
