// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package module

import (
	"strings"

	"github.com/ava-labs/multitest/types"
)

const (
	minAddrLen = 3
	maxAddrLen = 90
)

var _ Api = MockApi{}

// Api validates and converts addresses.
type Api interface {
	AddrValidate(human string) (types.Addr, error)
	AddrCanonicalize(human string) ([]byte, error)
	AddrHumanize(canonical []byte) (types.Addr, error)
}

// MockApi accepts lowercase addresses made of letters, digits, '_' and '-'.
// The canonical form of an address is its bytes.
type MockApi struct{}

func (MockApi) AddrValidate(human string) (types.Addr, error) {
	canonical, err := MockApi{}.AddrCanonicalize(human)
	if err != nil {
		return "", err
	}
	addr, err := MockApi{}.AddrHumanize(canonical)
	if err != nil {
		return "", err
	}
	if string(addr) != human {
		return "", types.Validationf("address %q is not normalized", human)
	}
	return addr, nil
}

func (MockApi) AddrCanonicalize(human string) ([]byte, error) {
	if len(human) < minAddrLen || len(human) > maxAddrLen {
		return nil, types.Validationf("invalid address %q: length must be between %d and %d", human, minAddrLen, maxAddrLen)
	}
	lower := strings.ToLower(human)
	for _, r := range lower {
		if !validAddrRune(r) {
			return nil, types.Validationf("invalid address %q: unexpected character %q", human, r)
		}
	}
	return []byte(lower), nil
}

func (MockApi) AddrHumanize(canonical []byte) (types.Addr, error) {
	if len(canonical) < minAddrLen || len(canonical) > maxAddrLen {
		return "", types.Validationf("invalid canonical address of length %d", len(canonical))
	}
	return types.Addr(canonical), nil
}

func validAddrRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}
