package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/cryptox"
	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/config"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/groups"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/passwords"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/revisions"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/settings"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/shares"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// --- in-memory store ---

// memStore backs the password, revision and share repositories. Reads
// return copies so services cannot mutate stored state without a write.
type memStore struct {
	passwords map[string]models.Password
	revisions map[string]models.Revision
	shares    map[string]models.Share

	revisionCreates int
	passwordUpdates int
	shareCreateErr  error

	// onRevisionCreate runs after a revision is stored, standing in for a
	// writer that commits between the service's read and its write.
	onRevisionCreate func()
}

func newMemStore() *memStore {
	return &memStore{
		passwords: map[string]models.Password{},
		revisions: map[string]models.Revision{},
		shares:    map[string]models.Share{},
	}
}

type memPasswords struct{ s *memStore }

func (r memPasswords) FindByID(_ context.Context, id string) (*models.Password, error) {
	p, ok := r.s.passwords[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r memPasswords) MarkShared(_ context.Context, id, fromRevision, toRevision string) error {
	p, ok := r.s.passwords[id]
	if !ok {
		return common.ErrorNotFound
	}
	if p.Revision == fromRevision {
		p.Revision = toRevision
	}
	p.HasShares = true
	r.s.passwords[id] = p
	r.s.passwordUpdates++
	return nil
}

func (r memPasswords) ClearShared(_ context.Context, id string) error {
	p, ok := r.s.passwords[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.HasShares = false
	r.s.passwords[id] = p
	r.s.passwordUpdates++
	return nil
}

type memRevisions struct{ s *memStore }

func (r memRevisions) FindByID(_ context.Context, id string) (*models.Revision, error) {
	rev, ok := r.s.revisions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rev, nil
}

func (r memRevisions) Create(_ context.Context, rev *models.Revision) error {
	r.s.revisions[rev.ID] = *rev
	r.s.revisionCreates++
	if r.s.onRevisionCreate != nil {
		r.s.onRevisionCreate()
	}
	return nil
}

type memShares struct{ s *memStore }

func (r memShares) FindByID(_ context.Context, id string) (*models.Share, error) {
	sh, ok := r.s.shares[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &sh, nil
}

func (r memShares) FindByPasswordAndReceiver(_ context.Context, passwordID, receiver string) (*models.Share, error) {
	for _, sh := range r.s.shares {
		if sh.PasswordID == passwordID && sh.Receiver == receiver {
			return &sh, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memShares) Create(_ context.Context, sh *models.Share) error {
	if r.s.shareCreateErr != nil {
		return r.s.shareCreateErr
	}
	r.s.shares[sh.ID] = *sh
	return nil
}

func (r memShares) Update(_ context.Context, sh *models.Share) error {
	if _, ok := r.s.shares[sh.ID]; !ok {
		return common.ErrorNotFound
	}
	r.s.shares[sh.ID] = *sh
	return nil
}

func (r memShares) Delete(_ context.Context, id string) error {
	if _, ok := r.s.shares[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.shares, id)
	return nil
}

func (r memShares) CountByPassword(_ context.Context, passwordID string) (int, error) {
	n := 0
	for _, sh := range r.s.shares {
		if sh.PasswordID == passwordID {
			n++
		}
	}
	return n, nil
}

type memRepoManager struct{ s *memStore }

func (m memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m memRepoManager) Passwords(dbx.DBTX) passwords.Repository      { return memPasswords{m.s} }
func (m memRepoManager) Revisions(dbx.DBTX) revisions.Repository      { return memRevisions{m.s} }
func (m memRepoManager) Shares(dbx.DBTX) shares.Repository            { return memShares{m.s} }
func (m memRepoManager) Users(dbx.DBTX) users.Repository              { return nil }
func (m memRepoManager) Groups(dbx.DBTX) groups.Repository            { return nil }
func (m memRepoManager) Settings(dbx.DBTX) settings.Repository        { return nil }

// --- host collaborators ---

type fakeDirectory struct {
	users    []models.DirectoryUser
	groupsOf map[string][]string
	members  map[string][]models.DirectoryUser

	searchedPatterns []string
	searchedGroups   []string
}

func (d *fakeDirectory) SearchUsers(_ context.Context, pattern string, _ int) ([]models.DirectoryUser, error) {
	d.searchedPatterns = append(d.searchedPatterns, pattern)
	return d.users, nil
}

func (d *fakeDirectory) UserGroupIDs(_ context.Context, userID string) ([]string, error) {
	return d.groupsOf[userID], nil
}

func (d *fakeDirectory) DisplayNamesInGroup(_ context.Context, groupID, pattern string, _ int) ([]models.DirectoryUser, error) {
	d.searchedGroups = append(d.searchedGroups, groupID)
	d.searchedPatterns = append(d.searchedPatterns, pattern)
	return d.members[groupID], nil
}

type fakePolicy struct {
	disabled    bool
	disabledFor map[string]bool
	groupsOnly  bool
	noResharing bool
	enumeration bool
}

func (p *fakePolicy) ShareAPIEnabled(context.Context) (bool, error) { return !p.disabled, nil }
func (p *fakePolicy) SharingDisabledForUser(_ context.Context, userID string) (bool, error) {
	return p.disabledFor[userID], nil
}
func (p *fakePolicy) ShareWithGroupMembersOnly(context.Context) (bool, error) { return p.groupsOnly, nil }
func (p *fakePolicy) ResharingAllowed(context.Context) (bool, error)          { return !p.noResharing, nil }
func (p *fakePolicy) UserEnumerationAllowed(context.Context) (bool, error)    { return p.enumeration, nil }

// --- fixture ---

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *ShareService
	revisions *RevisionService
	store     *memStore
	directory *fakeDirectory
	policy    *fakePolicy
	mock      sqlmock.Sqlmock
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	cipher, err := cryptox.NewServerCipher([]byte("test-server-secret"))
	require.NoError(t, err)

	if cfg == nil {
		cfg = &config.Config{}
	}

	f := &fixture{
		revisions: NewRevisionService(cipher),
		store:     newMemStore(),
		directory: &fakeDirectory{
			users: []models.DirectoryUser{
				{ID: "alice", DisplayName: "Alice"},
				{ID: "bob", DisplayName: "Bob"},
				{ID: "carol", DisplayName: "Carol"},
			},
		},
		policy: &fakePolicy{enumeration: true},
		mock:   mock,
	}
	f.svc = NewShareService(db, memRepoManager{f.store}, f.revisions, f.directory, f.policy, cfg, discardLogger())
	f.svc.now = func() time.Time { return testNow }

	return f
}

// addPassword stores a password owned by userID whose current revision is
// sealed with sse and has client-side encryption cse.
func (f *fixture) addPassword(t *testing.T, id, userID, cse, sse string) {
	t.Helper()

	rev := &models.Revision{ID: id + "-rev1", PasswordID: id, UserID: userID, CseType: cse, Hash: "h-" + id}
	require.NoError(t, f.revisions.Seal(rev, sse, []byte("secret of "+id)))
	f.store.revisions[rev.ID] = *rev
	f.store.passwords[id] = models.Password{ID: id, UserID: userID, Revision: rev.ID}
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
