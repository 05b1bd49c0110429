package query

import (
	"math"
	"testing"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func testAccount(id, user, platform, username string) *models.Account {
	return &models.Account{
		ID:           id,
		UserID:       user,
		PlatformName: platform,
		Username:     username,
		Categories:   []string{"Work"},
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ============================================================================
// Normalize / Criteria
// ============================================================================

func TestFilter_Normalize_Defaults(t *testing.T) {
	f := Filter{Page: -3, Sort: "bogus", GroupStatus: "", HasEmail: "maybe", Categories: []string{" Work ", "", "Work", "Social"}}.Normalize()

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, SortNewest, f.Sort)
	assert.Equal(t, GroupStatusAll, f.GroupStatus)
	assert.Equal(t, PresenceAll, f.HasEmail)
	assert.Equal(t, PresenceAll, f.HasPassword)
	assert.Equal(t, ScopeAll, f.Scope)
	assert.Equal(t, []string{"Work", "Social"}, f.Categories)
}

func TestFilter_Normalize_ClampsPage(t *testing.T) {
	assert.Equal(t, MaxPage, Filter{Page: math.MaxInt}.Normalize().Page)
	assert.Equal(t, 7, Filter{Page: 7}.Normalize().Page)
}

func TestFilter_Criteria_GroupDefault(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   Presence
	}{
		{name: "no text, scope all -> ungrouped only", filter: Filter{}, want: PresenceNo},
		{name: "search text shows grouped too", filter: Filter{Text: "git"}, want: PresenceAll},
		{name: "account scope shows grouped too", filter: Filter{Scope: ScopeAccount}, want: PresenceAll},
		{name: "explicit inside", filter: Filter{GroupStatus: GroupStatusInside}, want: PresenceYes},
		{name: "explicit outside with text", filter: Filter{GroupStatus: GroupStatusOutside, Text: "x"}, want: PresenceNo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.filter.Criteria("user-1")
			assert.Equal(t, tt.want, c.Group)
			assert.Equal(t, "user-1", c.UserID)
		})
	}
}

func TestFilter_Criteria_GroupScopeIsEmpty(t *testing.T) {
	c := Filter{Scope: ScopeGroup}.Criteria("user-1")
	assert.True(t, c.Empty)
	assert.False(t, c.Match(testAccount("a1", "user-1", "GitHub", "alice")))
}

// ============================================================================
// Match
// ============================================================================

func TestCriteria_Match(t *testing.T) {
	grouped := testAccount("a1", "user-1", "GitHub", "alice")
	grouped.GroupID = strPtr("g1")
	grouped.EmailID = strPtr("e1")
	grouped.EncryptedPassword = strPtr("ct")
	grouped.Categories = []string{"Work", "Dev"}

	plain := testAccount("a2", "user-1", "Netflix", "Bob@home")
	plain.Categories = []string{"Entertainment"}

	foreign := testAccount("a3", "user-2", "GitHub", "mallory")

	tests := []struct {
		name     string
		criteria Criteria
		account  *models.Account
		want     bool
	}{
		{name: "owner only", criteria: Criteria{UserID: "user-1"}, account: foreign, want: false},
		{name: "missing user never matches", criteria: Criteria{}, account: plain, want: false},
		{name: "text on platform, case-insensitive", criteria: Criteria{UserID: "user-1", Text: "gIT"}, account: grouped, want: true},
		{name: "text on username", criteria: Criteria{UserID: "user-1", Text: "bob@"}, account: plain, want: true},
		{name: "text miss", criteria: Criteria{UserID: "user-1", Text: "zzz"}, account: plain, want: false},
		{name: "inside", criteria: Criteria{UserID: "user-1", Group: PresenceYes}, account: grouped, want: true},
		{name: "outside rejects grouped", criteria: Criteria{UserID: "user-1", Group: PresenceNo}, account: grouped, want: false},
		{name: "specific group", criteria: Criteria{UserID: "user-1", GroupID: "g1"}, account: grouped, want: true},
		{name: "other group", criteria: Criteria{UserID: "user-1", GroupID: "g2"}, account: grouped, want: false},
		{name: "category overlap", criteria: Criteria{UserID: "user-1", Categories: []string{"Dev", "Games"}}, account: grouped, want: true},
		{name: "category disjoint", criteria: Criteria{UserID: "user-1", Categories: []string{"Games"}}, account: grouped, want: false},
		{name: "has email yes", criteria: Criteria{UserID: "user-1", Email: PresenceYes}, account: plain, want: false},
		{name: "has email no", criteria: Criteria{UserID: "user-1", Email: PresenceNo}, account: plain, want: true},
		{name: "has password yes", criteria: Criteria{UserID: "user-1", Password: PresenceYes}, account: grouped, want: true},
		{name: "has password no", criteria: Criteria{UserID: "user-1", Password: PresenceNo}, account: grouped, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Match(tt.account))
		})
	}
}

func TestMatchText(t *testing.T) {
	assert.True(t, MatchText("", "anything"))
	assert.True(t, MatchText("  ", "anything"))
	assert.True(t, MatchText("MAIL", "gmail.com", "x"))
	assert.False(t, MatchText("mail", "x", "y"))
}
