package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/query"
	"github.com/BradenHooton/vaultgate/pkg/cipher"
	"github.com/BradenHooton/vaultgate/pkg/logger"
)

// testLogger discards output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAudit() *logger.AuditLogger {
	return logger.NewAuditLogger(testLogger())
}

// testCipher returns a cipher with a fixed key
func testCipher() *cipher.Cipher {
	key := make([]byte, cipher.KeyLength)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := cipher.New(key)
	if err != nil {
		panic(err)
	}
	return c
}

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ============================================================================
// Session port and gate
// ============================================================================

// MockLockPort is an in-memory SessionLockPort
type MockLockPort struct {
	Unlocked bool
	SetErr   error
}

func (p *MockLockPort) IsUnlocked() bool { return p.Unlocked }

func (p *MockLockPort) SetUnlocked() error {
	if p.SetErr != nil {
		return p.SetErr
	}
	p.Unlocked = true
	return nil
}

func (p *MockLockPort) ClearUnlocked() { p.Unlocked = false }

// MockGate implements AccessGate for testing
type MockGate struct {
	AllowFunc func(ctx context.Context, userID string, port SessionLockPort) (bool, error)
}

func (m *MockGate) Allow(ctx context.Context, userID string, port SessionLockPort) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, userID, port)
	}
	return true, nil
}

func lockedGate() *MockGate {
	return &MockGate{AllowFunc: func(ctx context.Context, userID string, port SessionLockPort) (bool, error) {
		return false, nil
	}}
}

// MockPINGuard implements PINGuard for testing
type MockPINGuard struct {
	HasPINFunc func(ctx context.Context, userID string) (bool, error)
	VerifyFunc func(ctx context.Context, userID, candidate string) error
}

func (m *MockPINGuard) HasPIN(ctx context.Context, userID string) (bool, error) {
	if m.HasPINFunc != nil {
		return m.HasPINFunc(ctx, userID)
	}
	return true, nil
}

func (m *MockPINGuard) Verify(ctx context.Context, userID, candidate string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, userID, candidate)
	}
	return nil
}

// ============================================================================
// PIN state
// ============================================================================

// MockSecurityRepository keeps PIN state in memory. UpdatePINState follows the
// transactional contract: the state is written back only when fn returns nil.
type MockSecurityRepository struct {
	mu     sync.Mutex
	States map[string]models.UserSecurity

	GetErr    error
	SetPINErr error
	UpdateErr error
}

func NewMockSecurityRepository() *MockSecurityRepository {
	return &MockSecurityRepository{States: make(map[string]models.UserSecurity)}
}

func (m *MockSecurityRepository) Get(ctx context.Context, userID string) (*models.UserSecurity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	state, ok := m.States[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &state, nil
}

func (m *MockSecurityRepository) SetPIN(ctx context.Context, userID, encryptedPIN string, alertEmail *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetPINErr != nil {
		return m.SetPINErr
	}
	m.States[userID] = models.UserSecurity{UserID: userID, EncryptedPIN: &encryptedPIN, AlertEmail: alertEmail}
	return nil
}

func (m *MockSecurityRepository) UpdatePINState(ctx context.Context, userID string, fn func(*models.UserSecurity) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	state, ok := m.States[userID]
	if !ok {
		return models.ErrNotFound
	}
	if err := fn(&state); err != nil {
		return err
	}
	m.States[userID] = state
	return nil
}

// MockLockoutNotifier records alerts
type MockLockoutNotifier struct {
	mu   sync.Mutex
	Sent []string
	Err  error
}

func (m *MockLockoutNotifier) NotifyLockout(ctx context.Context, recipient string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, recipient)
	return m.Err
}

// ============================================================================
// TOTP
// ============================================================================

// MockTOTP implements TOTPProvider for testing
type MockTOTP struct {
	NormalizeSecretFunc func(secret string) (string, error)
	CodeFunc            func(secret string, at time.Time) (string, int, error)
	QRCodeFunc          func(accountName, secret string) (string, error)
}

func (m *MockTOTP) NormalizeSecret(secret string) (string, error) {
	if m.NormalizeSecretFunc != nil {
		return m.NormalizeSecretFunc(secret)
	}
	return secret, nil
}

func (m *MockTOTP) Code(secret string, at time.Time) (string, int, error) {
	if m.CodeFunc != nil {
		return m.CodeFunc(secret, at)
	}
	return "123456", 30, nil
}

func (m *MockTOTP) QRCode(accountName, secret string) (string, error) {
	if m.QRCodeFunc != nil {
		return m.QRCodeFunc(accountName, secret)
	}
	return "data:image/png;base64,AAAA", nil
}

// ============================================================================
// In-memory vault
// ============================================================================

// memoryVault is an in-memory store for accounts, groups and email
// identities. Account queries evaluate query.Criteria with Match, so results
// follow the same predicate the SQL store renders.
type memoryVault struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	accounts map[string]*models.Account
	groups   map[string]*models.Group
	emails   map[string]*models.EmailIdentity

	// Err, when set, is returned by every call
	Err error
}

func newMemoryVault() *memoryVault {
	return &memoryVault{
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		accounts: make(map[string]*models.Account),
		groups:   make(map[string]*models.Group),
		emails:   make(map[string]*models.EmailIdentity),
	}
}

// nextID returns a fresh id and a strictly increasing timestamp
func (v *memoryVault) nextID(prefix string) (string, time.Time) {
	v.seq++
	v.clock = v.clock.Add(time.Minute)
	return fmt.Sprintf("%s-%03d", prefix, v.seq), v.clock
}

func (v *memoryVault) Accounts() *memoryAccounts { return &memoryAccounts{v} }
func (v *memoryVault) Groups() *memoryGroups     { return &memoryGroups{v} }
func (v *memoryVault) Emails() *memoryEmails     { return &memoryEmails{v} }

// addGroup seeds a group
func (v *memoryVault) addGroup(userID, name string) *models.Group {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.insertGroup(userID, name)
}

func (v *memoryVault) insertGroup(userID, name string) *models.Group {
	id, now := v.nextID("grp")
	g := &models.Group{ID: id, UserID: userID, Name: name, CreatedAt: now}
	v.groups[id] = g
	return g
}

// addEmail seeds an email identity
func (v *memoryVault) addEmail(userID, address string) *models.EmailIdentity {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, now := v.nextID("eml")
	e := &models.EmailIdentity{ID: id, UserID: userID, Email: address, CreatedAt: now}
	v.emails[id] = e
	return e
}

// addAccount seeds an account. groupID and emailID may be empty.
func (v *memoryVault) addAccount(userID, platform, username, groupID, emailID string, categories ...string) *models.Account {
	if len(categories) == 0 {
		categories = []string{"Social"}
	}
	a := &models.Account{
		UserID:       userID,
		PlatformName: platform,
		Username:     username,
		Categories:   categories,
		GroupID:      optional(groupID),
		EmailID:      optional(emailID),
	}
	created, err := v.Accounts().Create(context.Background(), a)
	if err != nil {
		panic(err)
	}
	return created
}

func (v *memoryVault) view(a *models.Account) *models.AccountView {
	out := &models.AccountView{Account: *a}
	out.Categories = slices.Clone(a.Categories)
	if a.EmailID != nil {
		if e, ok := v.emails[*a.EmailID]; ok {
			out.EmailAddress = &e.Email
		}
	}
	if a.GroupID != nil {
		if g, ok := v.groups[*a.GroupID]; ok {
			out.GroupName = &g.Name
		}
	}
	return out
}

func (v *memoryVault) owned(userID, id string) (*models.Account, bool) {
	a, ok := v.accounts[id]
	if !ok || a.UserID != userID {
		return nil, false
	}
	return a, true
}

// memoryAccounts implements the account store interfaces
type memoryAccounts struct{ v *memoryVault }

func (m *memoryAccounts) matching(c query.Criteria, sort query.Sort) []*models.AccountView {
	out := make([]*models.AccountView, 0)
	for _, a := range m.v.accounts {
		if c.Match(a) {
			out = append(out, m.v.view(a))
		}
	}
	// map order is random; start from creation order so ties are stable
	slices.SortFunc(out, func(x, y *models.AccountView) int { return x.CreatedAt.Compare(y.CreatedAt) })
	query.SortAccounts(out, sort)
	return out
}

func (m *memoryAccounts) Count(ctx context.Context, c query.Criteria) (int, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return 0, m.v.Err
	}
	return len(m.matching(c, query.SortNewest)), nil
}

func (m *memoryAccounts) List(ctx context.Context, c query.Criteria, sort query.Sort, limit, offset int) ([]*models.AccountView, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	all := m.matching(c, sort)
	if limit <= 0 {
		return all, nil
	}
	if offset >= len(all) {
		return []*models.AccountView{}, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (m *memoryAccounts) ListIDs(ctx context.Context, c query.Criteria) ([]string, error) {
	views, err := m.List(ctx, c, query.SortNewest, 0, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(views))
	for _, view := range views {
		ids = append(ids, view.ID)
	}
	return ids, nil
}

func (m *memoryAccounts) GetByID(ctx context.Context, userID, id string) (*models.AccountView, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	a, ok := m.v.owned(userID, id)
	if !ok {
		return nil, models.ErrNotFound
	}
	return m.v.view(a), nil
}

func (m *memoryAccounts) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	created := *account
	created.ID, created.CreatedAt = m.v.nextID("acc")
	created.UpdatedAt = created.CreatedAt
	m.v.accounts[created.ID] = &created
	out := created
	return &out, nil
}

func (m *memoryAccounts) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	if _, ok := m.v.owned(account.UserID, account.ID); !ok {
		return nil, models.ErrNotFound
	}
	updated := *account
	m.v.accounts[account.ID] = &updated
	out := updated
	return &out, nil
}

func (m *memoryAccounts) Delete(ctx context.Context, userID, id string) error {
	n, err := m.DeleteMany(ctx, userID, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (m *memoryAccounts) MoveToGroup(ctx context.Context, userID string, ids []string, groupID string) (int64, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return 0, m.v.Err
	}
	if g, ok := m.v.groups[groupID]; !ok || g.UserID != userID {
		return 0, models.ErrNotFound
	}
	var n int64
	for _, id := range ids {
		if a, ok := m.v.owned(userID, id); ok {
			gid := groupID
			a.GroupID = &gid
			n++
		}
	}
	return n, nil
}

func (m *memoryAccounts) EjectFromGroup(ctx context.Context, userID string, ids []string) (int64, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return 0, m.v.Err
	}
	var n int64
	for _, id := range ids {
		if a, ok := m.v.owned(userID, id); ok && a.GroupID != nil {
			a.GroupID = nil
			n++
		}
	}
	return n, nil
}

func (m *memoryAccounts) DeleteMany(ctx context.Context, userID string, ids []string) (int64, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return 0, m.v.Err
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.v.owned(userID, id); ok {
			delete(m.v.accounts, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryAccounts) Import(ctx context.Context, userID string, records []models.ImportRecord) (int, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return 0, m.v.Err
	}
	for _, rec := range records {
		a := &models.Account{
			UserID:            userID,
			PlatformName:      rec.PlatformName,
			Username:          rec.Username,
			EncryptedPassword: rec.EncryptedPassword,
			Categories:        rec.Categories,
			Website:           rec.Website,
			Description:       rec.Description,
		}
		switch {
		case rec.GroupID != "":
			a.GroupID = optional(rec.GroupID)
		case rec.GroupName != "":
			var found *models.Group
			for _, g := range m.v.groups {
				if g.UserID == userID && g.Name == rec.GroupName {
					found = g
				}
			}
			if found == nil {
				found = m.v.insertGroup(userID, rec.GroupName)
			}
			a.GroupID = optional(found.ID)
		}
		for _, e := range m.v.emails {
			if e.UserID == userID && strings.EqualFold(e.Email, rec.EmailAddress) {
				a.EmailID = optional(e.ID)
			}
		}
		a.ID, a.CreatedAt = m.v.nextID("acc")
		m.v.accounts[a.ID] = a
	}
	return len(records), nil
}

// memoryGroups implements the group store interfaces
type memoryGroups struct{ v *memoryVault }

func (m *memoryGroups) summary(g *models.Group) *models.GroupSummary {
	count := 0
	for _, a := range m.v.accounts {
		if a.GroupID != nil && *a.GroupID == g.ID {
			count++
		}
	}
	return &models.GroupSummary{Group: *g, AccountCount: count}
}

func (m *memoryGroups) GetByID(ctx context.Context, userID, id string) (*models.GroupSummary, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	g, ok := m.v.groups[id]
	if !ok || g.UserID != userID {
		return nil, models.ErrNotFound
	}
	return m.summary(g), nil
}

func (m *memoryGroups) List(ctx context.Context, userID string) ([]*models.GroupSummary, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	out := make([]*models.GroupSummary, 0)
	for _, g := range m.v.groups {
		if g.UserID == userID {
			out = append(out, m.summary(g))
		}
	}
	slices.SortFunc(out, func(x, y *models.GroupSummary) int { return x.CreatedAt.Compare(y.CreatedAt) })
	return out, nil
}

func (m *memoryGroups) Create(ctx context.Context, userID, name string) (*models.Group, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	g := *m.v.insertGroup(userID, name)
	return &g, nil
}

func (m *memoryGroups) Rename(ctx context.Context, userID, id, name string) (*models.Group, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	g, ok := m.v.groups[id]
	if !ok || g.UserID != userID {
		return nil, models.ErrNotFound
	}
	g.Name = name
	out := *g
	return &out, nil
}

func (m *memoryGroups) DeleteMany(ctx context.Context, userID string, ids []string) (int64, int64, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return 0, 0, m.v.Err
	}
	var ejected, deleted int64
	for _, id := range ids {
		g, ok := m.v.groups[id]
		if !ok || g.UserID != userID {
			continue
		}
		for _, a := range m.v.accounts {
			if a.UserID == userID && a.GroupID != nil && *a.GroupID == id {
				a.GroupID = nil
				ejected++
			}
		}
		delete(m.v.groups, id)
		deleted++
	}
	return ejected, deleted, nil
}

// memoryEmails implements the email identity store interfaces
type memoryEmails struct{ v *memoryVault }

func (m *memoryEmails) view(e *models.EmailIdentity) *models.EmailIdentityView {
	out := &models.EmailIdentityView{EmailIdentity: *e}
	if e.RecoveryEmailID != nil {
		if r, ok := m.v.emails[*e.RecoveryEmailID]; ok {
			out.RecoveryEmail = &r.Email
		}
	}
	for _, a := range m.v.accounts {
		if a.EmailID != nil && *a.EmailID == e.ID {
			out.AccountCount++
		}
	}
	return out
}

func (m *memoryEmails) GetByID(ctx context.Context, userID, id string) (*models.EmailIdentityView, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	e, ok := m.v.emails[id]
	if !ok || e.UserID != userID {
		return nil, models.ErrNotFound
	}
	return m.view(e), nil
}

func (m *memoryEmails) List(ctx context.Context, userID string) ([]*models.EmailIdentityView, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	out := make([]*models.EmailIdentityView, 0)
	for _, e := range m.v.emails {
		if e.UserID == userID {
			out = append(out, m.view(e))
		}
	}
	slices.SortFunc(out, func(x, y *models.EmailIdentityView) int { return x.CreatedAt.Compare(y.CreatedAt) })
	return out, nil
}

func (m *memoryEmails) Create(ctx context.Context, identity *models.EmailIdentity) (*models.EmailIdentity, error) {
	m.v.mu.Lock()
	defer m.v.mu.Unlock()
	if m.v.Err != nil {
		return nil, m.v.Err
	}
	created := *identity
	created.ID, created.CreatedAt = m.v.nextID("eml")
	m.v.emails[created.ID] = &created
	out := created
	return &out, nil
}
