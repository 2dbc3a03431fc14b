package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"locals-bot/domain"
	"locals-bot/errors"
	"locals-bot/repositories"
	"log/slog"
)

const DefaultMaxAllocationRetries = 3

type ILocalService interface {
	// EnsureAccount returns the caller's account, creating it on first use.
	EnsureAccount(ctx context.Context, externalID int64, profile domain.Profile) (domain.Account, bool, error)
	ListLocals(ctx context.Context, ownerID domain.AccountID) ([]domain.LocalSummary, error)
	OwnedLocal(ctx context.Context, externalID int64, localID domain.LocalID) (domain.Local, error)
	LocalOverview(ctx context.Context, externalID int64, localID domain.LocalID) (domain.Local, []domain.Peer, error)
	CreateLocal(ctx context.Context, ownerID domain.AccountID, name string) (domain.Local, error)
	DeleteLocal(ctx context.Context, ownerID domain.AccountID, localID domain.LocalID) error
	CreatePeer(ctx context.Context, externalID int64, localID domain.LocalID, name string) (domain.Peer, error)
	OwnedPeer(ctx context.Context, externalID int64, peerID domain.PeerID) (domain.Local, domain.Peer, error)
	// RenamePeer also checks that the peer still belongs to localID.
	RenamePeer(ctx context.Context, externalID int64, localID domain.LocalID, peerID domain.PeerID, name string) (domain.Peer, error)
	DeletePeer(ctx context.Context, externalID int64, peerID domain.PeerID) (domain.Local, error)
}

type Options struct {
	FirstOctet           byte
	MaxBlockAttempts     int
	MaxAllocationRetries int
	Rand                 Rand
}

type LocalService struct {
	repo       repositories.IEntityRepository
	blocks     BlockGenerator
	maxRetries int
	rnd        Rand
	log        *slog.Logger
}

func NewLocalService(repo repositories.IEntityRepository, opts Options, log *slog.Logger) *LocalService {
	if opts.Rand == nil {
		opts.Rand = defaultRand{}
	}
	if opts.MaxAllocationRetries <= 0 {
		opts.MaxAllocationRetries = DefaultMaxAllocationRetries
	}
	return &LocalService{
		repo:       repo,
		blocks:     NewBlockGenerator(opts.FirstOctet, opts.MaxBlockAttempts, opts.Rand),
		maxRetries: opts.MaxAllocationRetries,
		rnd:        opts.Rand,
		log:        log,
	}
}

func (s *LocalService) EnsureAccount(ctx context.Context, externalID int64, profile domain.Profile) (domain.Account, bool, error) {
	account, err := s.repo.GetAccountByExternalID(ctx, externalID)
	if err == nil {
		return account, false, nil
	}
	if !stderrors.Is(err, errors.ErrAccountNotFound) {
		return domain.Account{}, false, err
	}
	account, err = s.repo.CreateAccount(ctx, externalID, profile.DisplayName())
	if err != nil {
		return domain.Account{}, false, err
	}
	s.log.Info("Account created", "account_id", account.ID, "external_id", externalID)
	return account, true, nil
}

func (s *LocalService) ListLocals(ctx context.Context, ownerID domain.AccountID) ([]domain.LocalSummary, error) {
	return s.repo.ListLocalsByOwner(ctx, ownerID)
}

func (s *LocalService) OwnedLocal(ctx context.Context, externalID int64, localID domain.LocalID) (domain.Local, error) {
	return s.repo.GetOwnedLocal(ctx, localID, externalID)
}

func (s *LocalService) LocalOverview(ctx context.Context, externalID int64, localID domain.LocalID) (domain.Local, []domain.Peer, error) {
	local, err := s.repo.GetOwnedLocal(ctx, localID, externalID)
	if err != nil {
		return domain.Local{}, nil, err
	}
	peers, err := s.repo.ListPeers(ctx, localID)
	if err != nil {
		return domain.Local{}, nil, err
	}
	return local, peers, nil
}

// CreateLocal stores a new local with a fresh address block. A name already
// in use gets a random suffix once; a lost block race is retried.
func (s *LocalService) CreateLocal(ctx context.Context, ownerID domain.AccountID, raw string) (domain.Local, error) {
	name, err := NormalizeName(raw)
	if err != nil {
		return domain.Local{}, err
	}

	resolved := false
	for attempt := 1; ; attempt++ {
		var local domain.Local
		err := s.repo.InTx(ctx, func(repo repositories.IEntityRepository) error {
			if !resolved {
				taken, err := repo.LocalNameExists(ctx, name)
				if err != nil {
					return err
				}
				if taken {
					name = SuffixName(name, s.rnd)
				}
				resolved = true
			}
			block, err := s.blocks.Generate(ctx, repo.AddressBlockExists)
			if err != nil {
				return err
			}
			local, err = repo.InsertLocal(ctx, ownerID, name, block)
			return err
		})
		if err == nil {
			s.log.Info("Local created", "local_id", local.ID, "owner_id", ownerID, "block", local.Block)
			return local, nil
		}
		if !stderrors.Is(err, errors.ErrBlockTaken) || attempt >= s.maxRetries {
			return domain.Local{}, err
		}
		s.log.Debug("Address block race lost, retrying", "attempt", attempt, "error", err)
	}
}

func (s *LocalService) DeleteLocal(ctx context.Context, ownerID domain.AccountID, localID domain.LocalID) error {
	if err := s.repo.DeleteLocal(ctx, localID, ownerID); err != nil {
		return err
	}
	s.log.Info("Local deleted", "local_id", localID, "owner_id", ownerID)
	return nil
}

// CreatePeer adds a peer on the lowest free address of the local. Peer names
// are never suffixed: a collision returns ErrNameTaken. When another writer
// takes the scanned address first the scan is redone.
func (s *LocalService) CreatePeer(ctx context.Context, externalID int64, localID domain.LocalID, raw string) (domain.Peer, error) {
	for attempt := 1; ; attempt++ {
		var peer domain.Peer
		err := s.repo.InTx(ctx, func(repo repositories.IEntityRepository) error {
			local, err := repo.GetOwnedLocal(ctx, localID, externalID)
			if err != nil {
				return err
			}
			name, err := NormalizeName(raw)
			if err != nil {
				return err
			}
			taken, err := repo.PeerNameExists(ctx, localID, name)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("peer %q: %w", name, errors.ErrNameTaken)
			}
			used, err := repo.UsedAddresses(ctx, localID)
			if err != nil {
				return err
			}
			address, err := AllocateHost(local.Block, used)
			if err != nil {
				return err
			}
			peer, err = repo.InsertPeer(ctx, localID, name, address)
			return err
		})
		if err == nil {
			s.log.Info("Peer created", "peer_id", peer.ID, "local_id", localID, "address", peer.Address)
			return peer, nil
		}
		if !stderrors.Is(err, errors.ErrAddressTaken) || attempt >= s.maxRetries {
			return domain.Peer{}, err
		}
		s.log.Debug("Address race lost, rescanning", "attempt", attempt, "local_id", localID)
	}
}

// OwnedPeer returns the peer only if it belongs to a local owned by the caller.
func (s *LocalService) OwnedPeer(ctx context.Context, externalID int64, peerID domain.PeerID) (domain.Local, domain.Peer, error) {
	return ownedPeer(ctx, s.repo, externalID, peerID)
}

func ownedPeer(ctx context.Context, repo repositories.IEntityRepository, externalID int64, peerID domain.PeerID) (domain.Local, domain.Peer, error) {
	peer, err := repo.GetPeer(ctx, peerID)
	if err != nil {
		return domain.Local{}, domain.Peer{}, err
	}
	local, err := repo.GetOwnedLocal(ctx, peer.LocalID, externalID)
	if err != nil {
		return domain.Local{}, domain.Peer{}, err
	}
	return local, peer, nil
}

func (s *LocalService) RenamePeer(ctx context.Context, externalID int64, localID domain.LocalID, peerID domain.PeerID, raw string) (domain.Peer, error) {
	var renamed domain.Peer
	err := s.repo.InTx(ctx, func(repo repositories.IEntityRepository) error {
		_, peer, err := ownedPeer(ctx, repo, externalID, peerID)
		if err != nil {
			return err
		}
		if peer.LocalID != localID {
			return fmt.Errorf("peer %d in local %d: %w", peerID, localID, errors.ErrNotFound)
		}
		name, err := NormalizeName(raw)
		if err != nil {
			return err
		}
		renamed = peer
		if peer.Name == name {
			return nil
		}
		taken, err := repo.PeerNameExists(ctx, localID, name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("peer %q: %w", name, errors.ErrNameTaken)
		}
		if err := repo.RenamePeer(ctx, peerID, name); err != nil {
			return err
		}
		renamed.Name = name
		return nil
	})
	if err != nil {
		return domain.Peer{}, err
	}
	return renamed, nil
}

func (s *LocalService) DeletePeer(ctx context.Context, externalID int64, peerID domain.PeerID) (domain.Local, error) {
	var local domain.Local
	err := s.repo.InTx(ctx, func(repo repositories.IEntityRepository) error {
		owned, _, err := ownedPeer(ctx, repo, externalID, peerID)
		if err != nil {
			return err
		}
		local = owned
		return repo.DeletePeer(ctx, peerID)
	})
	if err != nil {
		return domain.Local{}, err
	}
	s.log.Info("Peer deleted", "peer_id", peerID, "local_id", local.ID)
	return local, nil
}
