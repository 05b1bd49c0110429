package query

import (
	"math"

	"github.com/BradenHooton/vaultgate/internal/models"
)

// MaxPage bounds requested page numbers; larger values are clamped.
const MaxPage = 100000

// PageSizes holds the page size of each listing.
type PageSizes struct {
	Accounts int
	Groups   int
	Emails   int
}

// DefaultPageSizes returns the sizes used when none are configured.
func DefaultPageSizes() PageSizes {
	return PageSizes{Accounts: 12, Groups: 8, Emails: 10}
}

// TotalPages is ceil(total/size), never less than 1.
func TotalPages(total, size int) int {
	if size < 1 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Offset returns the row offset of a 1-based page, saturating at math.MaxInt.
func Offset(page, size int) int {
	if page < 1 || size < 1 {
		return 0
	}
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}

// Meta builds page metadata.
func Meta(total, page, size int) models.PageMeta {
	if page < 1 {
		page = 1
	}
	return models.PageMeta{
		TotalCount:  total,
		TotalPages:  TotalPages(total, size),
		CurrentPage: page,
	}
}

// Page returns the items of a 1-based page. Out of range pages are empty.
func Page[T any](items []T, page, size int) []T {
	if size < 1 {
		return []T{}
	}
	start := Offset(page, size)
	if start >= len(items) {
		return []T{}
	}
	end := start + min(size, len(items)-start)
	return items[start:end]
}
