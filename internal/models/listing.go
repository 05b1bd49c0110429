package models

// PageMeta describes a paginated result.
type PageMeta struct {
	TotalCount  int
	TotalPages  int
	CurrentPage int
}

// EmptyPageMeta is returned when nothing may be shown.
func EmptyPageMeta() PageMeta {
	return PageMeta{TotalCount: 0, TotalPages: 1, CurrentPage: 1}
}

type AccountPage struct {
	Accounts []*AccountView
	Meta     PageMeta
}

type GroupPage struct {
	Groups []*GroupSummary
	Meta   PageMeta
}

type EmailPage struct {
	Emails []*EmailIdentityView
	Meta   PageMeta
}

// GroupDetail is a group with one page of its accounts.
type GroupDetail struct {
	Group    *GroupSummary
	Accounts []*AccountView
	Meta     PageMeta
}

// Dashboard combines the account and group listings for one filter.
type Dashboard struct {
	Accounts           AccountPage
	Groups             GroupPage
	CombinedTotalPages int
}

// BulkResult summarizes a batch mutation.
type BulkResult struct {
	Affected int64
	Message  string
}

// ImportResult summarizes an import.
type ImportResult struct {
	Succeeded int
	Failed    int
	Message   string
}
