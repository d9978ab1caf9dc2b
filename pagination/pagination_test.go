package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(1, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 3, TotalPages(25, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(0, 3))
	assert.Equal(t, 1, Clamp(-7, 3))
	assert.Equal(t, 2, Clamp(2, 3))
	assert.Equal(t, 3, Clamp(99, 3))
	// Empty collection still resolves to page 1.
	assert.Equal(t, 1, Clamp(1, 0))
	assert.Equal(t, 1, Clamp(5, 0))
	assert.Equal(t, 1, Clamp(-1, 0))
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 10, Offset(2, 10))
	assert.Equal(t, 0, Offset(0, 10))
}

func TestPaginateConcatenationReproducesInput(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	var got []int
	totalPages := TotalPages(int64(len(items)), 10)
	require.Equal(t, 3, totalPages)
	for p := 1; p <= totalPages; p++ {
		page := Paginate(items, 10, p)
		assert.Equal(t, p, page.Number)
		assert.Equal(t, int64(25), page.Total)
		got = append(got, page.Items...)
	}
	assert.Equal(t, items, got)
}

func TestPaginateOverflowClampsToLastPage(t *testing.T) {
	items := make([]string, 11)
	for i := range items {
		items[i] = string(rune('a' + i))
	}

	page := Paginate(items, 10, 3)
	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, items[10], page.Items[0])
}

func TestPaginateUnderflowClampsToFirstPage(t *testing.T) {
	items := []int{1, 2, 3}
	page := Paginate(items, 2, 0)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, []int{1, 2}, page.Items)
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate([]int{}, 10, 1)
	assert.Equal(t, int64(0), page.Total)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 1, page.Number)
	assert.Empty(t, page.Items)

	// Any requested page of an empty collection resolves to page 1.
	page = Paginate([]int{}, 10, 7)
	assert.Equal(t, 1, page.Number)
	assert.Empty(t, page.Items)
}
