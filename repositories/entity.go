package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"locals-bot/domain"
	"locals-bot/errors"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/samber/lo"
)

type IEntityRepository interface {
	GetAccountByExternalID(ctx context.Context, externalID int64) (domain.Account, error)
	// CreateAccount is idempotent on the external id.
	CreateAccount(ctx context.Context, externalID int64, displayName string) (domain.Account, error)

	ListLocals(ctx context.Context) ([]domain.LocalSummary, error)
	ListLocalsByOwner(ctx context.Context, ownerID domain.AccountID) ([]domain.LocalSummary, error)
	// GetOwnedLocal returns errors.ErrNotFound when the local is missing or
	// belongs to someone else than the external user.
	GetOwnedLocal(ctx context.Context, localID domain.LocalID, externalID int64) (domain.Local, error)
	LocalNameExists(ctx context.Context, name string) (bool, error)
	AddressBlockExists(ctx context.Context, block domain.AddressBlock) (bool, error)
	InsertLocal(ctx context.Context, ownerID domain.AccountID, name string, block domain.AddressBlock) (domain.Local, error)
	// DeleteLocal removes the local and its peers in one transaction.
	DeleteLocal(ctx context.Context, localID domain.LocalID, ownerID domain.AccountID) error

	ListPeers(ctx context.Context, localID domain.LocalID) ([]domain.Peer, error)
	GetPeer(ctx context.Context, peerID domain.PeerID) (domain.Peer, error)
	UsedAddresses(ctx context.Context, localID domain.LocalID) ([]string, error)
	PeerNameExists(ctx context.Context, localID domain.LocalID, name string) (bool, error)
	InsertPeer(ctx context.Context, localID domain.LocalID, name, address string) (domain.Peer, error)
	RenamePeer(ctx context.Context, peerID domain.PeerID, name string) error
	DeletePeer(ctx context.Context, peerID domain.PeerID) error

	// InTx runs fn against a repository bound to one transaction. Any error
	// from fn rolls everything back.
	InTx(ctx context.Context, fn func(repo IEntityRepository) error) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type EntityRepository struct {
	db  *sql.DB
	q   querier
	tx  *sql.Tx
	log *slog.Logger
}

func NewEntityRepository(db *sql.DB, log *slog.Logger) *EntityRepository {
	return &EntityRepository{db: db, q: db, log: log}
}

func (r *EntityRepository) InTx(ctx context.Context, fn func(repo IEntityRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	bound := &EntityRepository{db: r.db, q: tx, tx: tx, log: r.log}

	if err := fn(bound); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("rollback transaction: %w", stderrors.Join(err, rollbackErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *EntityRepository) GetAccountByExternalID(ctx context.Context, externalID int64) (domain.Account, error) {
	var account domain.Account
	err := r.q.QueryRowContext(ctx,
		`SELECT id, external_id, display_name, balance FROM accounts WHERE external_id = ?`,
		externalID,
	).Scan(&account.ID, &account.ExternalID, &account.DisplayName, &account.Balance)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, errors.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (r *EntityRepository) CreateAccount(ctx context.Context, externalID int64, displayName string) (domain.Account, error) {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (external_id, display_name) VALUES (?, ?)
		 ON CONFLICT (external_id) DO NOTHING`,
		externalID, displayName,
	)
	if err != nil {
		return domain.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return r.GetAccountByExternalID(ctx, externalID)
}

const localSummaryQuery = `SELECT l.id, l.owner_id, l.name, l.address_block, COUNT(p.id)
	FROM locals l LEFT JOIN peers p ON p.local_id = l.id`

func (r *EntityRepository) ListLocals(ctx context.Context) ([]domain.LocalSummary, error) {
	return r.queryLocalSummaries(ctx, localSummaryQuery+` GROUP BY l.id ORDER BY l.id`)
}

func (r *EntityRepository) ListLocalsByOwner(ctx context.Context, ownerID domain.AccountID) ([]domain.LocalSummary, error) {
	return r.queryLocalSummaries(ctx,
		localSummaryQuery+` WHERE l.owner_id = ? GROUP BY l.id ORDER BY l.id`, ownerID)
}

func (r *EntityRepository) queryLocalSummaries(ctx context.Context, query string, args ...any) ([]domain.LocalSummary, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list locals: %w", err)
	}
	defer rows.Close()

	var summaries []domain.LocalSummary
	for rows.Next() {
		var s domain.LocalSummary
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Block, &s.PeerCount); err != nil {
			return nil, fmt.Errorf("scan local: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list locals: %w", err)
	}
	return summaries, nil
}

func (r *EntityRepository) GetOwnedLocal(ctx context.Context, localID domain.LocalID, externalID int64) (domain.Local, error) {
	var local domain.Local
	err := r.q.QueryRowContext(ctx,
		`SELECT l.id, l.owner_id, l.name, l.address_block
		 FROM locals l JOIN accounts a ON l.owner_id = a.id
		 WHERE l.id = ? AND a.external_id = ?`,
		localID, externalID,
	).Scan(&local.ID, &local.OwnerID, &local.Name, &local.Block)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.Local{}, fmt.Errorf("local %d: %w", localID, errors.ErrNotFound)
	}
	if err != nil {
		return domain.Local{}, fmt.Errorf("get local: %w", err)
	}
	return local, nil
}

func (r *EntityRepository) LocalNameExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM locals WHERE name = ?`, name)
}

func (r *EntityRepository) AddressBlockExists(ctx context.Context, block domain.AddressBlock) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM locals WHERE address_block = ?`, string(block))
}

func (r *EntityRepository) InsertLocal(ctx context.Context, ownerID domain.AccountID, name string, block domain.AddressBlock) (domain.Local, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO locals (owner_id, name, address_block) VALUES (?, ?, ?)`,
		ownerID, name, string(block),
	)
	if err != nil {
		return domain.Local{}, fmt.Errorf("insert local: %w", classifyConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Local{}, fmt.Errorf("insert local: %w", err)
	}
	return domain.Local{ID: domain.LocalID(id), OwnerID: ownerID, Name: name, Block: block}, nil
}

func (r *EntityRepository) DeleteLocal(ctx context.Context, localID domain.LocalID, ownerID domain.AccountID) error {
	return r.InTx(ctx, func(repo IEntityRepository) error {
		tx := repo.(*EntityRepository)
		owned, err := tx.exists(ctx, `SELECT 1 FROM locals WHERE id = ? AND owner_id = ?`, localID, ownerID)
		if err != nil {
			return err
		}
		if !owned {
			return fmt.Errorf("local %d: %w", localID, errors.ErrNotFound)
		}
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM peers WHERE local_id = ?`, localID); err != nil {
			return fmt.Errorf("delete peers: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM locals WHERE id = ?`, localID); err != nil {
			return fmt.Errorf("delete local: %w", err)
		}
		return nil
	})
}

func (r *EntityRepository) ListPeers(ctx context.Context, localID domain.LocalID) ([]domain.Peer, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, local_id, name, address FROM peers WHERE local_id = ? ORDER BY id`, localID)
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	defer rows.Close()

	var peers []domain.Peer
	for rows.Next() {
		var p domain.Peer
		if err := rows.Scan(&p.ID, &p.LocalID, &p.Name, &p.Address); err != nil {
			return nil, fmt.Errorf("scan peer: %w", err)
		}
		peers = append(peers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	return peers, nil
}

func (r *EntityRepository) GetPeer(ctx context.Context, peerID domain.PeerID) (domain.Peer, error) {
	var p domain.Peer
	err := r.q.QueryRowContext(ctx,
		`SELECT id, local_id, name, address FROM peers WHERE id = ?`, peerID,
	).Scan(&p.ID, &p.LocalID, &p.Name, &p.Address)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.Peer{}, fmt.Errorf("peer %d: %w", peerID, errors.ErrNotFound)
	}
	if err != nil {
		return domain.Peer{}, fmt.Errorf("get peer: %w", err)
	}
	return p, nil
}

// UsedAddresses always reads from the store, never from a cache.
func (r *EntityRepository) UsedAddresses(ctx context.Context, localID domain.LocalID) ([]string, error) {
	peers, err := r.ListPeers(ctx, localID)
	if err != nil {
		return nil, err
	}
	return lo.Map(peers, func(p domain.Peer, _ int) string { return p.Address }), nil
}

func (r *EntityRepository) PeerNameExists(ctx context.Context, localID domain.LocalID, name string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM peers WHERE local_id = ? AND name = ?`, localID, name)
}

func (r *EntityRepository) InsertPeer(ctx context.Context, localID domain.LocalID, name, address string) (domain.Peer, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO peers (local_id, name, address) VALUES (?, ?, ?)`,
		localID, name, address,
	)
	if err != nil {
		return domain.Peer{}, fmt.Errorf("insert peer: %w", classifyConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Peer{}, fmt.Errorf("insert peer: %w", err)
	}
	return domain.Peer{ID: domain.PeerID(id), LocalID: localID, Name: name, Address: address}, nil
}

func (r *EntityRepository) RenamePeer(ctx context.Context, peerID domain.PeerID, name string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE peers SET name = ? WHERE id = ?`, name, peerID)
	if err != nil {
		return fmt.Errorf("rename peer: %w", classifyConstraint(err))
	}
	return expectOneRow(res, peerID)
}

func (r *EntityRepository) DeletePeer(ctx context.Context, peerID domain.PeerID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM peers WHERE id = ?`, peerID)
	if err != nil {
		return fmt.Errorf("delete peer: %w", err)
	}
	return expectOneRow(res, peerID)
}

func (r *EntityRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return true, nil
}

func expectOneRow(res sql.Result, peerID domain.PeerID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("peer %d: %w", peerID, errors.ErrNotFound)
	}
	return nil
}

// classifyConstraint maps a UNIQUE violation to the matching domain error so
// callers can tell a lost allocation race from a name collision.
func classifyConstraint(err error) error {
	var sqliteErr sqlite3.Error
	if !stderrors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}
	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "peers.address"):
		return fmt.Errorf("%w: %v", errors.ErrAddressTaken, err)
	case strings.Contains(msg, "locals.address_block"):
		return fmt.Errorf("%w: %v", errors.ErrBlockTaken, err)
	default:
		return fmt.Errorf("%w: %v", errors.ErrNameTaken, err)
	}
}
