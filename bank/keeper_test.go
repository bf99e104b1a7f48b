// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bank

import (
	"encoding/json"
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/multitest/module"
	"github.com/ava-labs/multitest/router"
	"github.com/ava-labs/multitest/storage"
	"github.com/ava-labs/multitest/types"
)

const (
	alice types.Addr = "alice"
	bob   types.Addr = "bob"
	carol types.Addr = "carol"
)

func setup(t *testing.T) (database.Database, *router.Router, *Keeper) {
	t.Helper()
	r, err := router.New(module.MockApi{})
	require.NoError(t, err)
	k := New(nil)
	require.NoError(t, r.Register(types.FamilyBank, k))
	return storage.NewMem(), r, k
}

func balance(t *testing.T, k *Keeper, db database.Database, addr types.Addr) types.Coins {
	t.Helper()
	coins, err := k.Balance(db, addr)
	require.NoError(t, err)
	return coins
}

func TestSend(t *testing.T) {
	require := require.New(t)

	db, r, k := setup(t)
	require.NoError(k.InitBalance(db, alice, types.NewCoins(types.NewCoin(100, "utok"), types.NewCoin(5, "uatom"))))

	res, err := r.Execute(db, types.BlockInfo{}, alice, types.BankSend{
		ToAddress: bob,
		Amount:    types.NewCoins(types.NewCoin(40, "utok")),
	})
	require.NoError(err)

	require.Equal(types.NewCoins(types.NewCoin(60, "utok"), types.NewCoin(5, "uatom")), balance(t, k, db, alice))
	require.Equal(types.NewCoins(types.NewCoin(40, "utok")), balance(t, k, db, bob))

	require.Len(res.Events, 1)
	ev := res.Events[0]
	require.Equal(EventTransfer, ev.Type)
	require.Equal([]types.Attribute{
		{Key: AttrRecipient, Value: "bob"},
		{Key: AttrSender, Value: "alice"},
		{Key: AttrAmount, Value: "40utok"},
	}, ev.Attributes)
}

func TestSendAllRemovesEntry(t *testing.T) {
	require := require.New(t)

	db, r, k := setup(t)
	require.NoError(k.InitBalance(db, alice, types.NewCoins(types.NewCoin(10, "utok"))))

	_, err := r.Execute(db, types.BlockInfo{}, alice, types.BankSend{
		ToAddress: bob,
		Amount:    types.NewCoins(types.NewCoin(10, "utok")),
	})
	require.NoError(err)
	require.True(balance(t, k, db, alice).IsZero())

	pairs, err := storage.Dump(newBalanceState(db).db)
	require.NoError(err)
	require.Len(pairs, 1)
	require.Equal([]byte("bob"), pairs[0].Key)
}

func TestSendRejections(t *testing.T) {
	tests := []struct {
		name string
		msg  types.BankSend
	}{
		{
			name: "insufficient funds",
			msg:  types.BankSend{ToAddress: bob, Amount: types.NewCoins(types.NewCoin(11, "utok"))},
		},
		{
			name: "unknown denomination",
			msg:  types.BankSend{ToAddress: bob, Amount: types.NewCoins(types.NewCoin(1, "uatom"))},
		},
		{
			name: "malformed denomination",
			msg:  types.BankSend{ToAddress: bob, Amount: types.Coins{{Denom: "1x", Amount: 1}}},
		},
		{
			name: "empty amount",
			msg:  types.BankSend{ToAddress: bob},
		},
		{
			name: "invalid recipient",
			msg:  types.BankSend{ToAddress: "B!", Amount: types.NewCoins(types.NewCoin(1, "utok"))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			db, r, k := setup(t)
			require.NoError(k.InitBalance(db, alice, types.NewCoins(types.NewCoin(10, "utok"))))

			_, err := r.Execute(db, types.BlockInfo{}, alice, tt.msg)
			require.ErrorIs(err, types.ErrValidation)
			require.Equal(types.NewCoins(types.NewCoin(10, "utok")), balance(t, k, db, alice))
			require.True(balance(t, k, db, bob).IsZero())
		})
	}
}

func TestBurnAndMint(t *testing.T) {
	require := require.New(t)

	db, r, k := setup(t)
	_, err := r.Sudo(db, types.BlockInfo{}, types.BankMint{
		ToAddress: alice,
		Amount:    types.NewCoins(types.NewCoin(50, "utok")),
	})
	require.NoError(err)
	require.Equal(types.NewCoins(types.NewCoin(50, "utok")), balance(t, k, db, alice))

	res, err := r.Execute(db, types.BlockInfo{}, alice, types.BankBurn{
		Amount: types.NewCoins(types.NewCoin(20, "utok")),
	})
	require.NoError(err)
	require.Equal(types.NewCoins(types.NewCoin(30, "utok")), balance(t, k, db, alice))

	burns := res.FindEvents(EventBurn)
	require.Len(burns, 1)
	burner, ok := burns[0].Attr(AttrBurner)
	require.True(ok)
	require.Equal("alice", burner)

	_, err = r.Execute(db, types.BlockInfo{}, alice, types.BankBurn{
		Amount: types.NewCoins(types.NewCoin(31, "utok")),
	})
	require.ErrorIs(err, types.ErrValidation)
}

func TestSudoRejectsForeignMessage(t *testing.T) {
	db, _, k := setup(t)
	_, err := k.Sudo(db, nil, types.BlockInfo{}, types.WasmSudo{ContractAddr: "contract1"})
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestQueries(t *testing.T) {
	require := require.New(t)

	db, r, k := setup(t)
	require.NoError(k.InitBalance(db, alice, types.NewCoins(types.NewCoin(7, "utok"), types.NewCoin(3, "uatom"))))
	require.NoError(k.InitBalance(db, bob, types.NewCoins(types.NewCoin(5, "utok"))))
	require.NoError(k.InitBalance(db, carol, types.NewCoins(types.NewCoin(1, "uatom"))))

	raw, err := r.Query(db, types.BlockInfo{}, types.BankBalanceQuery{Address: alice, Denom: "utok"})
	require.NoError(err)
	var bal types.BalanceResponse
	require.NoError(json.Unmarshal(raw, &bal))
	require.Equal(types.NewCoin(7, "utok"), bal.Amount)

	raw, err = r.Query(db, types.BlockInfo{}, types.BankBalanceQuery{Address: "nobody", Denom: "utok"})
	require.NoError(err)
	require.NoError(json.Unmarshal(raw, &bal))
	require.Zero(bal.Amount.Amount)

	raw, err = r.Query(db, types.BlockInfo{}, types.BankAllBalancesQuery{Address: alice})
	require.NoError(err)
	var all types.AllBalancesResponse
	require.NoError(json.Unmarshal(raw, &all))
	require.Equal(types.NewCoins(types.NewCoin(7, "utok"), types.NewCoin(3, "uatom")), all.Amount)

	raw, err = r.Query(db, types.BlockInfo{}, types.BankSupplyQuery{Denom: "utok"})
	require.NoError(err)
	var supply types.SupplyResponse
	require.NoError(json.Unmarshal(raw, &supply))
	require.Equal(types.NewCoin(12, "utok"), supply.Amount)

	raw, err = r.Query(db, types.BlockInfo{}, types.BankSupplyQuery{Denom: "uatom"})
	require.NoError(err)
	require.NoError(json.Unmarshal(raw, &supply))
	require.Equal(types.NewCoin(4, "uatom"), supply.Amount)
}

func TestSupplySeesPendingWrites(t *testing.T) {
	require := require.New(t)

	db, r, k := setup(t)
	require.NoError(k.InitBalance(db, alice, types.NewCoins(types.NewCoin(10, "utok"))))

	o := storage.NewOverlay(db)
	defer o.Discard()
	_, err := r.Sudo(o, types.BlockInfo{}, types.BankMint{ToAddress: bob, Amount: types.NewCoins(types.NewCoin(5, "utok"))})
	require.NoError(err)

	total, err := newBalanceState(o).Supply("utok")
	require.NoError(err)
	require.Equal(uint64(15), total)

	total, err = newBalanceState(db).Supply("utok")
	require.NoError(err)
	require.Equal(uint64(10), total)
}
