// Package query turns a listing filter into one canonical predicate that can
// be rendered as SQL for the store or evaluated in memory against accounts
// already held by a caller.
package query

import (
	"slices"
	"strings"

	"github.com/BradenHooton/vaultgate/internal/models"
)

type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
	SortAZ     Sort = "az"
	SortZA     Sort = "za"
)

type GroupStatus string

const (
	GroupStatusAll     GroupStatus = "all"
	GroupStatusInside  GroupStatus = "inside"
	GroupStatusOutside GroupStatus = "outside"
)

// Presence filters on whether an optional field is set.
type Presence string

const (
	PresenceAll Presence = "all"
	PresenceYes Presence = "yes"
	PresenceNo  Presence = "no"
)

// Scope selects which kinds of entries a listing shows.
type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeAccount Scope = "account"
	ScopeGroup   Scope = "group"
)

// Filter is the listing request as received from a client.
type Filter struct {
	Text        string
	Page        int
	Sort        Sort
	GroupStatus GroupStatus
	Categories  []string
	HasEmail    Presence
	HasPassword Presence
	Scope       Scope
}

// Normalize fills defaults and replaces unknown enum values with them.
func (f Filter) Normalize() Filter {
	f.Text = strings.TrimSpace(f.Text)
	f.Page = min(max(f.Page, 1), MaxPage)
	switch f.Sort {
	case SortNewest, SortOldest, SortAZ, SortZA:
	default:
		f.Sort = SortNewest
	}
	switch f.GroupStatus {
	case GroupStatusAll, GroupStatusInside, GroupStatusOutside:
	default:
		f.GroupStatus = GroupStatusAll
	}
	f.HasEmail = normalizePresence(f.HasEmail)
	f.HasPassword = normalizePresence(f.HasPassword)
	switch f.Scope {
	case ScopeAll, ScopeAccount, ScopeGroup:
	default:
		f.Scope = ScopeAll
	}

	categories := make([]string, 0, len(f.Categories))
	for _, c := range f.Categories {
		if c = strings.TrimSpace(c); c != "" && !slices.Contains(categories, c) {
			categories = append(categories, c)
		}
	}
	f.Categories = categories

	return f
}

func normalizePresence(p Presence) Presence {
	switch p {
	case PresenceAll, PresenceYes, PresenceNo:
		return p
	default:
		return PresenceAll
	}
}

// Criteria is the resolved predicate set for account queries. Every field is
// AND'ed and the result is always restricted to UserID.
type Criteria struct {
	UserID     string
	Text       string
	GroupID    string
	Group      Presence
	Categories []string
	Email      Presence
	Password   Presence

	// Empty matches nothing.
	Empty bool
}

// Criteria resolves the filter for one user.
//
// With group status "all", no search text and a scope other than "account",
// only ungrouped accounts match: grouped accounts are represented by their
// group in the listing.
func (f Filter) Criteria(userID string) Criteria {
	f = f.Normalize()

	c := Criteria{
		UserID:     userID,
		Text:       f.Text,
		Group:      PresenceAll,
		Categories: f.Categories,
		Email:      f.HasEmail,
		Password:   f.HasPassword,
		Empty:      f.Scope == ScopeGroup,
	}

	switch f.GroupStatus {
	case GroupStatusInside:
		c.Group = PresenceYes
	case GroupStatusOutside:
		c.Group = PresenceNo
	default:
		if f.Text == "" && f.Scope != ScopeAccount {
			c.Group = PresenceNo
		}
	}

	return c
}

// InGroup returns criteria for the accounts of one group, optionally searched.
func InGroup(userID, groupID, text string) Criteria {
	return Criteria{
		UserID:   userID,
		Text:     strings.TrimSpace(text),
		GroupID:  groupID,
		Group:    PresenceAll,
		Email:    PresenceAll,
		Password: PresenceAll,
	}
}

// Match evaluates the criteria against an account in memory. It agrees with
// the SQL rendered by Where.
func (c Criteria) Match(a *models.Account) bool {
	if c.Empty || a == nil || c.UserID == "" || a.UserID != c.UserID {
		return false
	}
	if c.Text != "" && !MatchText(c.Text, a.PlatformName, a.Username) {
		return false
	}
	if c.GroupID != "" && (a.GroupID == nil || *a.GroupID != c.GroupID) {
		return false
	}
	if !matchPresence(c.Group, a.GroupID != nil) {
		return false
	}
	if len(c.Categories) > 0 && !overlaps(c.Categories, a.Categories) {
		return false
	}
	if !matchPresence(c.Email, a.EmailID != nil) {
		return false
	}
	return matchPresence(c.Password, a.EncryptedPassword != nil)
}

// MatchText is a case-insensitive substring match against any of fields.
// An empty text matches everything.
func MatchText(text string, fields ...string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), text) {
			return true
		}
	}
	return false
}

func matchPresence(p Presence, set bool) bool {
	switch p {
	case PresenceYes:
		return set
	case PresenceNo:
		return !set
	default:
		return true
	}
}

func overlaps(want, have []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
