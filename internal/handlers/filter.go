package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/BradenHooton/vaultgate/internal/query"
)

// parseFilter reads a listing filter from query parameters. Unknown enum
// values fall back to their defaults when the filter is normalized.
//
//	?q=git&page=2&sort=az&group_status=outside&categories=Work,Dev
//	 &has_email=yes&has_password=no&scope=account
func parseFilter(r *http.Request) query.Filter {
	q := r.URL.Query()

	return query.Filter{
		Text:        q.Get("q"),
		Page:        parsePage(q.Get("page")),
		Sort:        query.Sort(q.Get("sort")),
		GroupStatus: query.GroupStatus(q.Get("group_status")),
		Categories:  parseList(q["categories"]),
		HasEmail:    query.Presence(q.Get("has_email")),
		HasPassword: query.Presence(q.Get("has_password")),
		Scope:       query.Scope(q.Get("scope")),
	}
}

// parsePage treats anything unparsable or below 1 as the first page
func parsePage(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 1
	}
	if n > query.MaxPage {
		return query.MaxPage
	}
	return n
}

// parseList accepts both repeated parameters and comma separated values
func parseList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
