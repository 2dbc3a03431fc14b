package services

import (
	"context"
	"fmt"
	"locals-bot/domain"
	"locals-bot/errors"
	"math/rand/v2"

	"github.com/samber/lo"
)

const DefaultMaxBlockAttempts = 32

// Rand is the source of randomness for blocks and names.
type Rand interface {
	IntN(n int) int
}

type defaultRand struct{}

// DefaultRand draws from math/rand/v2.
var DefaultRand Rand = defaultRand{}

func (defaultRand) IntN(n int) int { return rand.IntN(n) }

// AllocateHost returns the lowest free host address of the block.
// used must be a fresh snapshot of the addresses already assigned in the local.
func AllocateHost(block domain.AddressBlock, used []string) (string, error) {
	taken := lo.SliceToMap(used, func(address string) (string, struct{}) {
		return address, struct{}{}
	})
	for host := domain.FirstHost; host <= domain.LastHost; host++ {
		address := block.Host(host)
		if _, ok := taken[address]; !ok {
			return address, nil
		}
	}
	return "", fmt.Errorf("block %s: %w", block, errors.ErrAddressesExhausted)
}

// BlockGenerator draws random /24 blocks under a fixed first octet.
type BlockGenerator struct {
	firstOctet  byte
	maxAttempts int
	rnd         Rand
}

func NewBlockGenerator(firstOctet byte, maxAttempts int, rnd Rand) BlockGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxBlockAttempts
	}
	if rnd == nil {
		rnd = defaultRand{}
	}
	return BlockGenerator{firstOctet: firstOctet, maxAttempts: maxAttempts, rnd: rnd}
}

// Generate returns the first drawn block for which exists reports false.
// It gives up with ErrBlocksExhausted after maxAttempts draws.
func (g BlockGenerator) Generate(ctx context.Context, exists func(ctx context.Context, block domain.AddressBlock) (bool, error)) (domain.AddressBlock, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		block := domain.NewAddressBlock(g.firstOctet, byte(g.rnd.IntN(256)), byte(g.rnd.IntN(256)))
		taken, err := exists(ctx, block)
		if err != nil {
			return "", err
		}
		if !taken {
			return block, nil
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", g.maxAttempts, errors.ErrBlocksExhausted)
}
