package query

import (
	"sort"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortStable orders items in place. Names are compared with a root-locale
// collator; equal keys keep their input order.
func sortStable[T any](items []T, s Sort, name func(T) string, created func(T) time.Time) {
	switch s {
	case SortAZ, SortZA:
		// Collators keep internal buffers and must not be shared.
		col := collate.New(language.Und)
		sort.SliceStable(items, func(i, j int) bool {
			c := col.CompareString(name(items[i]), name(items[j]))
			if s == SortZA {
				return c > 0
			}
			return c < 0
		})
	case SortOldest:
		sort.SliceStable(items, func(i, j int) bool {
			return created(items[i]).Before(created(items[j]))
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return created(items[i]).After(created(items[j]))
		})
	}
}

// SortAccounts orders account views by platform name or creation time.
func SortAccounts(views []*models.AccountView, s Sort) {
	sortStable(views, s,
		func(v *models.AccountView) string { return v.PlatformName },
		func(v *models.AccountView) time.Time { return v.CreatedAt },
	)
}

// SortGroups orders groups by name or creation time.
func SortGroups(groups []*models.GroupSummary, s Sort) {
	sortStable(groups, s,
		func(g *models.GroupSummary) string { return g.Name },
		func(g *models.GroupSummary) time.Time { return g.CreatedAt },
	)
}

// SortEmails orders email identities by address or creation time.
func SortEmails(emails []*models.EmailIdentityView, s Sort) {
	sortStable(emails, s,
		func(e *models.EmailIdentityView) string { return e.Email },
		func(e *models.EmailIdentityView) time.Time { return e.CreatedAt },
	)
}
