package query

import (
	"fmt"
	"strings"
)

// SortCollation is the ICU collation used for name ordering in Postgres.
// Official postgres images ship with ICU, which creates it by default.
const SortCollation = `"und-x-icu"`

// Where renders the criteria as a SQL predicate over saved_accounts aliased
// as "a". Placeholders start at $(offset+1).
func (c Criteria) Where(offset int) (string, []any) {
	if c.Empty || c.UserID == "" {
		return "FALSE", nil
	}

	var (
		clauses []string
		args    []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", offset+len(args))
	}

	clauses = append(clauses, "a.user_id = "+bind(c.UserID))

	if c.Text != "" {
		p := bind(LikePattern(c.Text))
		clauses = append(clauses, fmt.Sprintf("(a.platform_name ILIKE %s OR a.username ILIKE %s)", p, p))
	}

	if c.GroupID != "" {
		clauses = append(clauses, "a.group_id = "+bind(c.GroupID))
	}

	if clause := presenceClause("a.group_id", c.Group); clause != "" {
		clauses = append(clauses, clause)
	}

	if len(c.Categories) > 0 {
		clauses = append(clauses, "a.categories && "+bind(c.Categories)+"::text[]")
	}

	if clause := presenceClause("a.email_id", c.Email); clause != "" {
		clauses = append(clauses, clause)
	}
	if clause := presenceClause("a.encrypted_password", c.Password); clause != "" {
		clauses = append(clauses, clause)
	}

	return strings.Join(clauses, " AND "), args
}

// OrderBy renders the account ordering. Ties fall back to creation order.
func (s Sort) OrderBy() string {
	switch s {
	case SortOldest:
		return "a.created_at ASC, a.id ASC"
	case SortAZ:
		return "a.platform_name COLLATE " + SortCollation + " ASC, a.created_at ASC, a.id ASC"
	case SortZA:
		return "a.platform_name COLLATE " + SortCollation + " DESC, a.created_at ASC, a.id ASC"
	default:
		return "a.created_at DESC, a.id DESC"
	}
}

// LikePattern escapes LIKE metacharacters and wraps text for a contains match.
func LikePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}

func presenceClause(column string, p Presence) string {
	switch p {
	case PresenceYes:
		return column + " IS NOT NULL"
	case PresenceNo:
		return column + " IS NULL"
	default:
		return ""
	}
}
