// Package pagination slices ordered collections into fixed-size pages.
//
// Out-of-range page numbers clamp to the nearest valid page instead of
// erroring, so "?page=999" renders the last page and "?page=0" the first.
package pagination

// Page is one bounded slice of an ordered collection plus its metadata.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	Number     int   `json:"page"`
	Size       int   `json:"page_size"`
}

// TotalPages returns ceil(total/size); zero for an empty collection.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// Clamp normalizes a requested page number against the page count:
// anything below 1 becomes 1, anything past the end becomes the last page.
// An empty collection has a single valid page, page 1.
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Offset converts a clamped page number to a row offset.
func Offset(page, size int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * size
}

// Paginate slices items into the requested page, preserving their order.
// Concatenating every page in sequence reproduces the input exactly.
func Paginate[T any](items []T, size, page int) Page[T] {
	total := int64(len(items))
	totalPages := TotalPages(total, size)
	page = Clamp(page, totalPages)

	start := Offset(page, size)
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}

	return Page[T]{
		Items:      items[start:end],
		Total:      total,
		TotalPages: totalPages,
		Number:     page,
		Size:       size,
	}
}
