package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"locals-bot/domain"
	"locals-bot/errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestOpenSQLiteReadOnly(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	// Given no database file, opening read-only fails and creates nothing
	missing := filepath.Join(dir, "missing.db")
	_, err := OpenSQLiteReadOnly(missing)
	req.Error(err)
	_, statErr := os.Stat(missing)
	req.True(os.IsNotExist(statErr))

	// Given an existing database, it can be read but not written
	path := filepath.Join(dir, "locals.db")
	rw, err := OpenSQLite(path)
	req.NoError(err)
	req.NoError(Migrate(ctx, rw))
	_, err = NewEntityRepository(rw, slog.Default()).CreateAccount(ctx, 1001, "Ada")
	req.NoError(err)
	req.NoError(rw.Close())

	ro, err := OpenSQLiteReadOnly(path)
	req.NoError(err)
	defer ro.Close()
	repo := NewEntityRepository(ro, slog.Default())
	account, err := repo.GetAccountByExternalID(ctx, 1001)
	req.NoError(err)
	req.Equal("Ada", account.DisplayName)
	_, err = repo.CreateAccount(ctx, 2002, "Bob")
	req.Error(err)
}

func newTestEntityRepository(t *testing.T) *EntityRepository {
	return NewEntityRepository(newTestSQLite(t), slog.Default())
}

func TestMigrate_IsIdempotent(t *testing.T) {
	req := require.New(t)
	db := newTestSQLite(t)
	req.NoError(Migrate(context.Background(), db))
}

func TestEntityRepository_CreateAccount_IsIdempotent(t *testing.T) {
	req := require.New(t)
	repo := newTestEntityRepository(t)
	ctx := context.Background()

	_, err := repo.GetAccountByExternalID(ctx, 1001)
	req.ErrorIs(err, errors.ErrAccountNotFound)

	first, err := repo.CreateAccount(ctx, 1001, "Ada")
	req.NoError(err)
	second, err := repo.CreateAccount(ctx, 1001, "Someone else")
	req.NoError(err)

	req.Equal(first, second)
	req.Equal("Ada", second.DisplayName)
	req.Equal(domain.Money(0), second.Balance)
}

func TestEntityRepository_InsertLocal_UniqueNameAndBlock(t *testing.T) {
	req := require.New(t)
	repo := newTestEntityRepository(t)
	ctx := context.Background()
	owner, err := repo.CreateAccount(ctx, 1, "owner")
	req.NoError(err)

	_, err = repo.InsertLocal(ctx, owner.ID, "home", "10.1.1.0/24")
	req.NoError(err)

	// Same name, other block
	_, err = repo.InsertLocal(ctx, owner.ID, "home", "10.1.2.0/24")
	req.ErrorIs(err, errors.ErrNameTaken)

	// Same block, other name
	_, err = repo.InsertLocal(ctx, owner.ID, "office", "10.1.1.0/24")
	req.ErrorIs(err, errors.ErrBlockTaken)

	exists, err := repo.LocalNameExists(ctx, "home")
	req.NoError(err)
	req.True(exists)
	exists, err = repo.AddressBlockExists(ctx, "10.1.2.0/24")
	req.NoError(err)
	req.False(exists)
}

func TestEntityRepository_InsertPeer_UniquePerLocal(t *testing.T) {
	req := require.New(t)
	repo := newTestEntityRepository(t)
	ctx := context.Background()
	owner, err := repo.CreateAccount(ctx, 1, "owner")
	req.NoError(err)
	home, err := repo.InsertLocal(ctx, owner.ID, "home", "10.1.1.0/24")
	req.NoError(err)
	office, err := repo.InsertLocal(ctx, owner.ID, "office", "10.1.2.0/24")
	req.NoError(err)

	_, err = repo.InsertPeer(ctx, home.ID, "laptop", "10.1.1.2")
	req.NoError(err)

	_, err = repo.InsertPeer(ctx, home.ID, "laptop", "10.1.1.3")
	req.ErrorIs(err, errors.ErrNameTaken)

	_, err = repo.InsertPeer(ctx, home.ID, "phone", "10.1.1.2")
	req.ErrorIs(err, errors.ErrAddressTaken)

	// The same name is fine in another local
	_, err = repo.InsertPeer(ctx, office.ID, "laptop", "10.1.2.2")
	req.NoError(err)

	used, err := repo.UsedAddresses(ctx, home.ID)
	req.NoError(err)
	req.Equal([]string{"10.1.1.2"}, used)
}

func TestEntityRepository_ListLocalsByOwner_CountsPeers(t *testing.T) {
	req := require.New(t)
	repo := newTestEntityRepository(t)
	ctx := context.Background()
	alice, err := repo.CreateAccount(ctx, 1, "alice")
	req.NoError(err)
	bob, err := repo.CreateAccount(ctx, 2, "bob")
	req.NoError(err)

	home, err := repo.InsertLocal(ctx, alice.ID, "home", "10.1.1.0/24")
	req.NoError(err)
	_, err = repo.InsertLocal(ctx, bob.ID, "bob-net", "10.1.2.0/24")
	req.NoError(err)
	_, err = repo.InsertPeer(ctx, home.ID, "a", "10.1.1.2")
	req.NoError(err)
	_, err = repo.InsertPeer(ctx, home.ID, "b", "10.1.1.3")
	req.NoError(err)

	locals, err := repo.ListLocalsByOwner(ctx, alice.ID)
	req.NoError(err)
	req.Len(locals, 1)
	req.Equal("home", locals[0].Name)
	req.Equal(2, locals[0].PeerCount)

	all, err := repo.ListLocals(ctx)
	req.NoError(err)
	req.Len(all, 2)
	req.Equal(0, all[1].PeerCount)
}

func TestEntityRepository_GetOwnedLocal_RefusesOtherUsers(t *testing.T) {
	req := require.New(t)
	repo := newTestEntityRepository(t)
	ctx := context.Background()
	alice, err := repo.CreateAccount(ctx, 1, "alice")
	req.NoError(err)
	_, err = repo.CreateAccount(ctx, 2, "bob")
	req.NoError(err)
	home, err := repo.InsertLocal(ctx, alice.ID, "home", "10.1.1.0/24")
	req.NoError(err)

	local, err := repo.GetOwnedLocal(ctx, home.ID, 1)
	req.NoError(err)
	req.Equal(home, local)

	_, err = repo.GetOwnedLocal(ctx, home.ID, 2)
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repo.GetOwnedLocal(ctx, home.ID+100, 1)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestEntityRepository_DeleteLocal_CascadesAndChecksOwner(t *testing.T) {
	req := require.New(t)
	repo := newTestEntityRepository(t)
	ctx := context.Background()
	alice, err := repo.CreateAccount(ctx, 1, "alice")
	req.NoError(err)
	bob, err := repo.CreateAccount(ctx, 2, "bob")
	req.NoError(err)
	home, err := repo.InsertLocal(ctx, alice.ID, "home", "10.1.1.0/24")
	req.NoError(err)
	peer, err := repo.InsertPeer(ctx, home.ID, "laptop", "10.1.1.2")
	req.NoError(err)

	// Given bob tries to delete alice's local
	err = repo.DeleteLocal(ctx, home.ID, bob.ID)

	// Then nothing changes
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = repo.GetOwnedLocal(ctx, home.ID, 1)
	req.NoError(err)
	_, err = repo.GetPeer(ctx, peer.ID)
	req.NoError(err)

	// When alice deletes it
	req.NoError(repo.DeleteLocal(ctx, home.ID, alice.ID))

	// Then the local and its peers are gone
	_, err = repo.GetOwnedLocal(ctx, home.ID, 1)
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = repo.GetPeer(ctx, peer.ID)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestEntityRepository_RenameAndDeletePeer(t *testing.T) {
	req := require.New(t)
	repo := newTestEntityRepository(t)
	ctx := context.Background()
	owner, err := repo.CreateAccount(ctx, 1, "owner")
	req.NoError(err)
	home, err := repo.InsertLocal(ctx, owner.ID, "home", "10.1.1.0/24")
	req.NoError(err)
	laptop, err := repo.InsertPeer(ctx, home.ID, "laptop", "10.1.1.2")
	req.NoError(err)
	_, err = repo.InsertPeer(ctx, home.ID, "phone", "10.1.1.3")
	req.NoError(err)

	req.ErrorIs(repo.RenamePeer(ctx, laptop.ID, "phone"), errors.ErrNameTaken)
	req.NoError(repo.RenamePeer(ctx, laptop.ID, "desktop"))

	renamed, err := repo.GetPeer(ctx, laptop.ID)
	req.NoError(err)
	req.Equal("desktop", renamed.Name)
	req.Equal("10.1.1.2", renamed.Address)

	req.NoError(repo.DeletePeer(ctx, laptop.ID))
	req.ErrorIs(repo.DeletePeer(ctx, laptop.ID), errors.ErrNotFound)
	req.ErrorIs(repo.RenamePeer(ctx, laptop.ID, "again"), errors.ErrNotFound)
}

func TestEntityRepository_InTx_RollsBackOnError(t *testing.T) {
	req := require.New(t)
	repo := newTestEntityRepository(t)
	ctx := context.Background()
	owner, err := repo.CreateAccount(ctx, 1, "owner")
	req.NoError(err)
	boom := stderrors.New("boom")

	// When a transaction fails after an insert
	err = repo.InTx(ctx, func(tx IEntityRepository) error {
		if _, err := tx.InsertLocal(ctx, owner.ID, "home", "10.1.1.0/24"); err != nil {
			return err
		}
		return boom
	})

	// Then the insert is rolled back
	req.ErrorIs(err, boom)
	exists, err := repo.LocalNameExists(ctx, "home")
	req.NoError(err)
	req.False(exists)
}
