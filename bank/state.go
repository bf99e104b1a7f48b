// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bank

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"

	"github.com/ava-labs/multitest/storage"
	"github.com/ava-labs/multitest/types"
)

// balancesPrefix namespaces every balance in the store.
var balancesPrefix = []byte("bank/balances")

// balanceRecord is the stored form of an account's balance.
type balanceRecord struct {
	Coins []types.Coin `serialize:"true"`
}

// balanceState is a thin wrapper around a database providing serialization
// of balances. It is built per call over whatever store is in scope.
type balanceState struct {
	db database.Database
}

func newBalanceState(store database.Database) *balanceState {
	return &balanceState{db: prefixdb.New(balancesPrefix, store)}
}

func (s *balanceState) Get(addr types.Addr) (types.Coins, error) {
	b, err := s.db.Get([]byte(addr))
	switch {
	case err == database.ErrNotFound:
		return types.Coins{}, nil
	case err != nil:
		return nil, err
	}
	return parseBalance(b)
}

// Set overwrites the balance of [addr]. An empty balance removes the entry.
func (s *balanceState) Set(addr types.Addr, coins types.Coins) error {
	if coins.IsZero() {
		return s.db.Delete([]byte(addr))
	}
	b, err := types.Codec.Marshal(types.CodecVersion, &balanceRecord{Coins: coins})
	if err != nil {
		return err
	}
	return s.db.Put([]byte(addr), b)
}

func (s *balanceState) Add(addr types.Addr, amount types.Coins) error {
	have, err := s.Get(addr)
	if err != nil {
		return err
	}
	sum, err := have.Add(amount)
	if err != nil {
		return err
	}
	return s.Set(addr, sum)
}

func (s *balanceState) Sub(addr types.Addr, amount types.Coins) error {
	have, err := s.Get(addr)
	if err != nil {
		return err
	}
	left, err := have.Sub(amount)
	if err != nil {
		return types.Validationf("%s: %s", addr, unwrapValidation(err))
	}
	return s.Set(addr, left)
}

// Supply sums the balances of every account for [denom].
func (s *balanceState) Supply(denom string) (uint64, error) {
	it := storage.Range(s.db, nil, nil)
	defer it.Release()

	var total types.Coins
	for it.Next() {
		coins, err := parseBalance(it.Value())
		if err != nil {
			return 0, err
		}
		amount := coins.AmountOf(denom)
		if amount == 0 {
			continue
		}
		if total, err = total.Add(types.Coins{types.NewCoin(amount, denom)}); err != nil {
			return 0, err
		}
	}
	if err := it.Error(); err != nil {
		return 0, err
	}
	return total.AmountOf(denom), nil
}

func parseBalance(b []byte) (types.Coins, error) {
	var rec balanceRecord
	if _, err := types.Codec.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return types.Coins(rec.Coins), nil
}

// unwrapValidation strips the kind prefix so re-wrapping doesn't repeat it.
func unwrapValidation(err error) error {
	if e, ok := err.(*types.Error); ok && e.Err != nil {
		return e.Err
	}
	return err
}
