package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/query"
)

// AccountReader defines the read side of account storage
type AccountReader interface {
	Count(ctx context.Context, c query.Criteria) (int, error)
	List(ctx context.Context, c query.Criteria, sort query.Sort, limit, offset int) ([]*models.AccountView, error)
	ListIDs(ctx context.Context, c query.Criteria) ([]string, error)
}

// GroupReader defines the read side of group storage
type GroupReader interface {
	GetByID(ctx context.Context, userID, id string) (*models.GroupSummary, error)
	List(ctx context.Context, userID string) ([]*models.GroupSummary, error)
}

// EmailReader defines the read side of email identity storage
type EmailReader interface {
	GetByID(ctx context.Context, userID, id string) (*models.EmailIdentityView, error)
	List(ctx context.Context, userID string) ([]*models.EmailIdentityView, error)
}

// AccessGate is the part of SessionGate data services depend on
type AccessGate interface {
	Allow(ctx context.Context, userID string, port SessionLockPort) (bool, error)
}

// ListingService serves the filtered, sorted and paginated listings
type ListingService struct {
	accounts     AccountReader
	groups       GroupReader
	emails       EmailReader
	gate         AccessGate
	sizes        query.PageSizes
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewListingService creates a new ListingService
func NewListingService(accounts AccountReader, groups GroupReader, emails EmailReader, gate AccessGate, sizes query.PageSizes, storeTimeout time.Duration, logger *slog.Logger) *ListingService {
	defaults := query.DefaultPageSizes()
	if sizes.Accounts < 1 {
		sizes.Accounts = defaults.Accounts
	}
	if sizes.Groups < 1 {
		sizes.Groups = defaults.Groups
	}
	if sizes.Emails < 1 {
		sizes.Emails = defaults.Emails
	}

	return &ListingService{
		accounts:     accounts,
		groups:       groups,
		emails:       emails,
		gate:         gate,
		sizes:        sizes,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

func emptyAccountPage() *models.AccountPage {
	return &models.AccountPage{Accounts: []*models.AccountView{}, Meta: models.EmptyPageMeta()}
}

func emptyGroupPage() *models.GroupPage {
	return &models.GroupPage{Groups: []*models.GroupSummary{}, Meta: models.EmptyPageMeta()}
}

func emptyEmailPage() *models.EmailPage {
	return &models.EmailPage{Emails: []*models.EmailIdentityView{}, Meta: models.EmptyPageMeta()}
}

// allowed runs the gate. A missing user is never allowed and is not an error.
func (s *ListingService) allowed(ctx context.Context, userID string, port SessionLockPort) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.gate.Allow(ctx, userID, port)
}

// ListAccounts returns one page of the user's accounts matching f
func (s *ListingService) ListAccounts(ctx context.Context, userID string, port SessionLockPort, f query.Filter) (*models.AccountPage, error) {
	ok, err := s.allowed(ctx, userID, port)
	if err != nil || !ok {
		return emptyAccountPage(), err
	}

	f = f.Normalize()
	return s.accountPage(ctx, f.Criteria(userID), f.Sort, f.Page)
}

func (s *ListingService) accountPage(ctx context.Context, c query.Criteria, sort query.Sort, page int) (*models.AccountPage, error) {
	if c.Empty {
		return &models.AccountPage{Accounts: []*models.AccountView{}, Meta: query.Meta(0, page, s.sizes.Accounts)}, nil
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	total, err := s.accounts.Count(ctx, c)
	if err != nil {
		return nil, storeError(s.logger, "failed to count accounts", err, slog.String("user_id", c.UserID))
	}

	accounts := []*models.AccountView{}
	offset := query.Offset(page, s.sizes.Accounts)
	if offset < total {
		accounts, err = s.accounts.List(ctx, c, sort, s.sizes.Accounts, offset)
		if err != nil {
			return nil, storeError(s.logger, "failed to list accounts", err, slog.String("user_id", c.UserID))
		}
	}

	return &models.AccountPage{Accounts: accounts, Meta: query.Meta(total, page, s.sizes.Accounts)}, nil
}

// AccountIDs returns the ids of every account matching f, unpaginated
func (s *ListingService) AccountIDs(ctx context.Context, userID string, port SessionLockPort, f query.Filter) ([]string, error) {
	ok, err := s.allowed(ctx, userID, port)
	if err != nil || !ok {
		return []string{}, err
	}

	c := f.Criteria(userID)
	if c.Empty {
		return []string{}, nil
	}
	return s.accountIDs(ctx, c)
}

func (s *ListingService) accountIDs(ctx context.Context, c query.Criteria) ([]string, error) {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	ids, err := s.accounts.ListIDs(ctx, c)
	if err != nil {
		return nil, storeError(s.logger, "failed to list account ids", err, slog.String("user_id", c.UserID))
	}
	return ids, nil
}

// matchingGroups returns the user's groups matching f, sorted
func (s *ListingService) matchingGroups(ctx context.Context, userID string, f query.Filter) ([]*models.GroupSummary, error) {
	if f.Scope == query.ScopeAccount {
		return []*models.GroupSummary{}, nil
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	groups, err := s.groups.List(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "failed to list groups", err, slog.String("user_id", userID))
	}

	matched := make([]*models.GroupSummary, 0, len(groups))
	for _, g := range groups {
		if query.MatchText(f.Text, g.Name) {
			matched = append(matched, g)
		}
	}
	query.SortGroups(matched, f.Sort)
	return matched, nil
}

// ListGroups returns one page of the user's groups matching f
func (s *ListingService) ListGroups(ctx context.Context, userID string, port SessionLockPort, f query.Filter) (*models.GroupPage, error) {
	ok, err := s.allowed(ctx, userID, port)
	if err != nil || !ok {
		return emptyGroupPage(), err
	}

	f = f.Normalize()
	groups, err := s.matchingGroups(ctx, userID, f)
	if err != nil {
		return nil, err
	}

	return &models.GroupPage{
		Groups: query.Page(groups, f.Page, s.sizes.Groups),
		Meta:   query.Meta(len(groups), f.Page, s.sizes.Groups),
	}, nil
}

// GroupIDs returns the ids of every group matching f
func (s *ListingService) GroupIDs(ctx context.Context, userID string, port SessionLockPort, f query.Filter) ([]string, error) {
	ok, err := s.allowed(ctx, userID, port)
	if err != nil || !ok {
		return []string{}, err
	}

	groups, err := s.matchingGroups(ctx, userID, f.Normalize())
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// GroupDetail returns a group and one page of its accounts, newest first
func (s *ListingService) GroupDetail(ctx context.Context, userID string, port SessionLockPort, groupID, text string, page int) (*models.GroupDetail, error) {
	if userID == "" {
		return nil, models.ErrNotFound
	}
	ok, err := s.gate.Allow(ctx, userID, port)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrLocked
	}

	group, err := s.group(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accountPage(ctx, query.InGroup(userID, groupID, text), query.SortNewest, min(max(page, 1), query.MaxPage))
	if err != nil {
		return nil, err
	}

	return &models.GroupDetail{Group: group, Accounts: accounts.Accounts, Meta: accounts.Meta}, nil
}

// GroupAccountIDs returns the ids of a group's accounts matching text
func (s *ListingService) GroupAccountIDs(ctx context.Context, userID string, port SessionLockPort, groupID, text string) ([]string, error) {
	ok, err := s.allowed(ctx, userID, port)
	if err != nil || !ok {
		return []string{}, err
	}

	if _, err := s.group(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return s.accountIDs(ctx, query.InGroup(userID, groupID, text))
}

func (s *ListingService) group(ctx context.Context, userID, groupID string) (*models.GroupSummary, error) {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	group, err := s.groups.GetByID(ctx, userID, groupID)
	if err != nil {
		return nil, storeError(s.logger, "failed to get group", err, slog.String("group_id", groupID))
	}
	return group, nil
}

// ListEmails returns one page of the user's email identities
func (s *ListingService) ListEmails(ctx context.Context, userID string, port SessionLockPort, f query.Filter) (*models.EmailPage, error) {
	ok, err := s.allowed(ctx, userID, port)
	if err != nil || !ok {
		return emptyEmailPage(), err
	}

	f = f.Normalize()

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	emails, err := s.emails.List(storeCtx, userID)
	if err != nil {
		return nil, storeError(s.logger, "failed to list emails", err, slog.String("user_id", userID))
	}

	matched := make([]*models.EmailIdentityView, 0, len(emails))
	for _, e := range emails {
		name := ""
		if e.Name != nil {
			name = *e.Name
		}
		if query.MatchText(f.Text, e.Email, name) {
			matched = append(matched, e)
		}
	}
	query.SortEmails(matched, f.Sort)

	return &models.EmailPage{
		Emails: query.Page(matched, f.Page, s.sizes.Emails),
		Meta:   query.Meta(len(matched), f.Page, s.sizes.Emails),
	}, nil
}

// Dashboard combines the account and group pages for one filter
func (s *ListingService) Dashboard(ctx context.Context, userID string, port SessionLockPort, f query.Filter) (*models.Dashboard, error) {
	ok, err := s.allowed(ctx, userID, port)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &models.Dashboard{Accounts: *emptyAccountPage(), Groups: *emptyGroupPage(), CombinedTotalPages: 1}, nil
	}

	f = f.Normalize()

	accounts, err := s.accountPage(ctx, f.Criteria(userID), f.Sort, f.Page)
	if err != nil {
		return nil, err
	}

	groups, err := s.matchingGroups(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	groupPage := models.GroupPage{
		Groups: query.Page(groups, f.Page, s.sizes.Groups),
		Meta:   query.Meta(len(groups), f.Page, s.sizes.Groups),
	}

	return &models.Dashboard{
		Accounts:           *accounts,
		Groups:             groupPage,
		CombinedTotalPages: max(accounts.Meta.TotalPages, groupPage.Meta.TotalPages),
	}, nil
}
