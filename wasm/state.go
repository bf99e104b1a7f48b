// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wasm

import (
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"

	"github.com/ava-labs/multitest/types"
)

var (
	contractsPrefix = []byte("wasm/contracts")
	storagePrefix   = []byte("wasm/storage/")
	metaPrefix      = []byte("wasm/meta")

	contractSeqKey = []byte("contract_seq")
)

// ContractInfo is what the module knows about an instantiated contract.
type ContractInfo struct {
	CodeID  uint64     `serialize:"true" json:"code_id"`
	Creator types.Addr `serialize:"true" json:"creator"`
	Admin   types.Addr `serialize:"true" json:"admin,omitempty"`
	Label   string     `serialize:"true" json:"label"`
	Created uint64     `serialize:"true" json:"created"`
}

// state wraps the store in scope with the wasm module's namespaces. It is
// built per call so it always sees the caller's pending writes.
type state struct {
	store     database.Database
	contracts database.Database
	meta      database.Database
}

func newState(store database.Database) *state {
	return &state{
		store:     store,
		contracts: prefixdb.New(contractsPrefix, store),
		meta:      prefixdb.New(metaPrefix, store),
	}
}

func (s *state) GetContract(addr types.Addr) (ContractInfo, error) {
	b, err := s.contracts.Get([]byte(addr))
	switch {
	case err == database.ErrNotFound:
		return ContractInfo{}, types.Validationf("unknown contract %s", addr)
	case err != nil:
		return ContractInfo{}, err
	}
	var info ContractInfo
	if _, err := types.Codec.Unmarshal(b, &info); err != nil {
		return ContractInfo{}, err
	}
	return info, nil
}

func (s *state) PutContract(addr types.Addr, info ContractInfo) error {
	b, err := types.Codec.Marshal(types.CodecVersion, &info)
	if err != nil {
		return err
	}
	return s.contracts.Put([]byte(addr), b)
}

// NextAddress reserves the next contract address. The counter lives in the
// store, so a rolled back instantiation gives its address back.
func (s *state) NextAddress() (types.Addr, error) {
	seq, err := database.GetUInt64(s.meta, contractSeqKey)
	switch {
	case err == database.ErrNotFound:
		seq = 0
	case err != nil:
		return "", err
	}
	seq++
	if err := database.PutUInt64(s.meta, contractSeqKey, seq); err != nil {
		return "", err
	}
	return types.Addr(fmt.Sprintf("contract%d", seq)), nil
}

// ContractStorage returns the storage namespace of [addr].
func (s *state) ContractStorage(addr types.Addr) database.Database {
	return contractStorage(s.store, addr)
}

func contractStorage(store database.Database, addr types.Addr) database.Database {
	prefix := make([]byte, 0, len(storagePrefix)+len(addr)+1)
	prefix = append(prefix, storagePrefix...)
	prefix = append(prefix, addr...)
	// addresses never contain '/', so no namespace is a prefix of another
	prefix = append(prefix, '/')
	return prefixdb.New(prefix, store)
}
