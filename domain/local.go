package domain

import (
	"fmt"
	"locals-bot/errors"
	"net/netip"
	"strings"
)

type LocalID int64

type PeerID int64

// Host octets available to peers. .1 is the gateway and .255 the broadcast.
const (
	FirstHost    = 2
	LastHost     = 254
	HostCapacity = LastHost - FirstHost + 1
)

// AddressBlock is a /24 network in CIDR notation, e.g. "10.12.34.0/24".
type AddressBlock string

func NewAddressBlock(first, second, third byte) AddressBlock {
	prefix := netip.PrefixFrom(netip.AddrFrom4([4]byte{first, second, third, 0}), 24)
	return AddressBlock(prefix.String())
}

func ParseAddressBlock(s string) (AddressBlock, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", errors.ErrInvalidBlock, s, err)
	}
	if !prefix.Addr().Is4() || prefix.Bits() != 24 || prefix.Masked() != prefix {
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidBlock, s)
	}
	return AddressBlock(prefix.String()), nil
}

// Base returns the three fixed octets of the block ("10.12.34").
func (b AddressBlock) Base() string {
	s := string(b)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

func (b AddressBlock) Host(host int) string {
	return fmt.Sprintf("%s.%d", b.Base(), host)
}

type Local struct {
	ID      LocalID
	OwnerID AccountID
	Name    string
	Block   AddressBlock
}

// LocalSummary is a local as listed in the owner's menu.
type LocalSummary struct {
	Local
	PeerCount int
}

type Peer struct {
	ID      PeerID
	LocalID LocalID
	Name    string
	Address string
}
