package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/invoices", nil)
	page, perPage := ParsePagination(r, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)

	r = httptest.NewRequest("GET", "/invoices?page=3&limit=5", nil)
	page, perPage = ParsePagination(r, 20)
	require.Equal(t, 3, page)
	require.Equal(t, 5, perPage)

	// Garbage and non-positive values fall back to the defaults.
	r = httptest.NewRequest("GET", "/invoices?page=zero&limit=-1", nil)
	page, perPage = ParsePagination(r, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	pageItems, meta := Paginate(items, 2, 2)
	require.Equal(t, []int{3, 4}, pageItems)
	require.Equal(t, Pagination{Page: 2, PerPage: 2, TotalItems: 5}, meta)

	pageItems, meta = Paginate(items, 3, 2)
	require.Equal(t, []int{5}, pageItems)
	require.Equal(t, 5, meta.TotalItems)

	pageItems, _ = Paginate(items, 9, 2)
	require.Empty(t, pageItems)
}
