package query

import (
	"math"
	"testing"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/stretchr/testify/assert"
)

func groupsNamed(names ...string) []*models.GroupSummary {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*models.GroupSummary, len(names))
	for i, n := range names {
		out[i] = &models.GroupSummary{Group: models.Group{ID: n, Name: n, CreatedAt: base.Add(time.Duration(i) * time.Hour)}}
	}
	return out
}

func names(groups []*models.GroupSummary) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Name
	}
	return out
}

func TestSortGroups_LocaleAware(t *testing.T) {
	groups := groupsNamed("banking", "Zeta", "Éclair", "apple", "eagle")

	SortGroups(groups, SortAZ)
	assert.Equal(t, []string{"apple", "banking", "eagle", "Éclair", "Zeta"}, names(groups))

	SortGroups(groups, SortZA)
	assert.Equal(t, []string{"Zeta", "Éclair", "eagle", "banking", "apple"}, names(groups))
}

func TestSortGroups_ByCreation(t *testing.T) {
	groups := groupsNamed("first", "second", "third")

	SortGroups(groups, SortNewest)
	assert.Equal(t, []string{"third", "second", "first"}, names(groups))

	SortGroups(groups, SortOldest)
	assert.Equal(t, []string{"first", "second", "third"}, names(groups))
}

func TestSortGroups_StableTies(t *testing.T) {
	groups := groupsNamed("same", "same", "same")
	groups[0].ID, groups[1].ID, groups[2].ID = "x", "y", "z"

	SortGroups(groups, SortAZ)
	assert.Equal(t, "x", groups[0].ID)
	assert.Equal(t, "y", groups[1].ID)
	assert.Equal(t, "z", groups[2].ID)
}

func TestSortAccounts_AZ(t *testing.T) {
	views := []*models.AccountView{
		{Account: models.Account{ID: "1", PlatformName: "netflix"}},
		{Account: models.Account{ID: "2", PlatformName: "GitHub"}},
		{Account: models.Account{ID: "3", PlatformName: "amazon"}},
	}

	SortAccounts(views, SortAZ)
	assert.Equal(t, "3", views[0].ID)
	assert.Equal(t, "2", views[1].ID)
	assert.Equal(t, "1", views[2].ID)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 12))
	assert.Equal(t, 1, TotalPages(12, 12))
	assert.Equal(t, 2, TotalPages(13, 12))
	assert.Equal(t, 1, TotalPages(5, 0))

	assert.Equal(t, 0, Offset(0, 12))
	assert.Equal(t, 24, Offset(3, 12))

	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Page(items, 1, 2))
	assert.Equal(t, []int{5}, Page(items, 3, 2))
	assert.Equal(t, []int{}, Page(items, 4, 2))
	assert.Equal(t, []int{1, 2}, Page(items, -1, 2))

	assert.Equal(t, models.PageMeta{TotalCount: 13, TotalPages: 2, CurrentPage: 1}, Meta(13, 0, 12))
}

func TestPagination_HugePageIsEmpty(t *testing.T) {
	assert.Equal(t, math.MaxInt, Offset(math.MaxInt, 8))
	assert.Equal(t, math.MaxInt, Offset(math.MaxInt/2, 12))

	assert.NotPanics(t, func() {
		assert.Equal(t, []int{}, Page([]int{1, 2, 3}, math.MaxInt, 8))
	})
	assert.Equal(t, []int{}, Page([]int{1, 2, 3}, math.MaxInt/4+1, 4))
}
