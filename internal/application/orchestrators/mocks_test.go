package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"teammood/internal/adapters/email"
	"teammood/internal/adapters/token"
	"teammood/internal/domain/account"
	"teammood/internal/domain/mood"
	"teammood/internal/domain/outbox"
	"teammood/internal/domain/preference"
	"teammood/internal/domain/team"
)

var testTime = time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC)

func testNow() time.Time { return testTime }

// seqIDs returns a generator yielding id-1, id-2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// --- accounts ---

type mockAccountStore struct {
	accounts map[string]account.Account
	saves    int
}

func newMockAccountStore(accts ...account.Account) *mockAccountStore {
	m := &mockAccountStore{accounts: make(map[string]account.Account)}
	for _, a := range accts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account not found: %w", sql.ErrNoRows)
	}
	return a, nil
}

func (m *mockAccountStore) GetByEmail(_ context.Context, addr string) (account.Account, error) {
	for _, a := range m.accounts {
		if a.Email == account.NormalizeEmail(addr) {
			return a, nil
		}
	}
	return account.Account{}, fmt.Errorf("account not found: %w", sql.ErrNoRows)
}

func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	m.saves++
	m.accounts[a.ID] = a
	return nil
}

// newAccount builds an account with a real bcrypt hash.
func newAccount(id, addr, password string) account.Account {
	a := account.Account{ID: id, Email: addr, CreatedAt: testTime}
	if err := a.SetPassword(password); err != nil {
		panic(err)
	}
	return a
}

// --- teams ---

type mockTeamStore struct {
	teams   map[string]team.Team
	members map[string]team.Member // teamID/accountID
	saveErr error
}

func newMockTeamStore() *mockTeamStore {
	return &mockTeamStore{teams: make(map[string]team.Team), members: make(map[string]team.Member)}
}

func memberKey(teamID, accountID string) string { return teamID + "/" + accountID }

func (m *mockTeamStore) addTeam(t team.Team, members ...team.Member) {
	m.teams[t.ID] = t
	for _, mem := range members {
		mem.TeamID = t.ID
		m.members[memberKey(t.ID, mem.AccountID)] = mem
	}
}

func (m *mockTeamStore) Create(_ context.Context, t team.Team, owner team.Member) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.teams[t.ID] = t
	m.members[memberKey(t.ID, owner.AccountID)] = owner
	return nil
}

func (m *mockTeamStore) GetByInviteCode(_ context.Context, code string) (team.Team, error) {
	for _, t := range m.teams {
		if t.InviteCode == team.NormalizeInviteCode(code) {
			return t, nil
		}
	}
	return team.Team{}, fmt.Errorf("team not found: %w", sql.ErrNoRows)
}

func (m *mockTeamStore) GetMember(_ context.Context, teamID, accountID string) (team.Member, error) {
	mem, ok := m.members[memberKey(teamID, accountID)]
	if !ok {
		return team.Member{}, fmt.Errorf("member not found: %w", sql.ErrNoRows)
	}
	return mem, nil
}

func (m *mockTeamStore) ListMembers(_ context.Context, teamID string) ([]team.Member, error) {
	var out []team.Member
	for _, mem := range m.members {
		if mem.TeamID == teamID {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (m *mockTeamStore) ListForAccount(_ context.Context, accountID string) ([]team.Team, error) {
	var out []team.Team
	for _, mem := range m.members {
		if mem.AccountID == accountID {
			out = append(out, m.teams[mem.TeamID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockTeamStore) SaveMember(_ context.Context, mem team.Member) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.members[memberKey(mem.TeamID, mem.AccountID)] = mem
	return nil
}

func (m *mockTeamStore) DeleteMember(_ context.Context, teamID, accountID string) error {
	delete(m.members, memberKey(teamID, accountID))
	return nil
}

func (m *mockTeamStore) ownerCanLeave(teamID, accountID string) bool {
	members, _ := m.ListMembers(context.Background(), teamID)
	mem, ok := m.members[memberKey(teamID, accountID)]
	return ok && mem.Role == team.RoleOwner && team.CountOwners(members) > 1
}

func (m *mockTeamStore) DemoteOwner(_ context.Context, teamID, accountID, role string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if !m.ownerCanLeave(teamID, accountID) {
		return team.ErrLastOwner
	}
	mem := m.members[memberKey(teamID, accountID)]
	mem.Role = role
	m.members[memberKey(teamID, accountID)] = mem
	return nil
}

func (m *mockTeamStore) RemoveOwner(_ context.Context, teamID, accountID string) error {
	if !m.ownerCanLeave(teamID, accountID) {
		return team.ErrLastOwner
	}
	delete(m.members, memberKey(teamID, accountID))
	return nil
}

// --- moods ---

type mockMoodStore struct {
	entries map[string]mood.Entry // accountID/teamID/date
}

func newMockMoodStore() *mockMoodStore {
	return &mockMoodStore{entries: make(map[string]mood.Entry)}
}

func (m *mockMoodStore) Save(_ context.Context, e mood.Entry) error {
	m.entries[e.AccountID+"/"+e.TeamID+"/"+mood.DateKey(e.Date)] = e
	return nil
}

// --- preferences ---

type mockPreferenceStore struct {
	prefs map[string]preference.Preferences
}

func newMockPreferenceStore() *mockPreferenceStore {
	return &mockPreferenceStore{prefs: make(map[string]preference.Preferences)}
}

func (m *mockPreferenceStore) Get(_ context.Context, accountID string) (preference.Preferences, error) {
	p, ok := m.prefs[accountID]
	if !ok {
		return preference.Preferences{}, fmt.Errorf("preferences not found: %w", sql.ErrNoRows)
	}
	return p, nil
}

func (m *mockPreferenceStore) Save(_ context.Context, p preference.Preferences) error {
	m.prefs[p.AccountID] = p
	return nil
}

// --- outbox & email ---

type mockOutboxStore struct {
	entries map[string]outbox.Entry
	order   []string
	listErr error
}

func newMockOutboxStore(entries ...outbox.Entry) *mockOutboxStore {
	m := &mockOutboxStore{entries: make(map[string]outbox.Entry)}
	for _, e := range entries {
		m.entries[e.ID] = e
		m.order = append(m.order, e.ID)
	}
	return m
}

func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	if _, ok := m.entries[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []outbox.Entry
	for _, id := range m.order {
		e := m.entries[id]
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type mockSender struct {
	sent []email.SendRequest
	err  error
}

func (m *mockSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	if m.err != nil {
		return email.SendResult{}, m.err
	}
	m.sent = append(m.sent, req)
	return email.SendResult{MessageID: fmt.Sprintf("msg-%d", len(m.sent)), SentAt: testTime}, nil
}

var errProviderDown = errors.New("provider unavailable")

// newTestSigner returns a real signer pinned to testTime.
func newTestSigner() *token.ResetSigner {
	return token.NewResetSigner("0123456789abcdef0123456789abcdef", time.Hour, testNow)
}
