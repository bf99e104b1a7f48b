// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bank implements the ledger module: balances per address and
// denomination, transfers, burns and the privileged mint.
package bank

import (
	"encoding/json"
	"fmt"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/multitest/module"
	"github.com/ava-labs/multitest/types"
)

var _ module.Module = &Keeper{}

// Event types and attribute keys emitted by the bank module.
const (
	EventTransfer = "transfer"
	EventBurn     = "burn"

	AttrRecipient = "recipient"
	AttrSender    = "sender"
	AttrBurner    = "burner"
	AttrAmount    = "amount"
)

// Keeper is the bank module.
type Keeper struct {
	log log.Logger
}

// New returns a bank keeper logging to [l].
func New(l log.Logger) *Keeper {
	if l == nil {
		l = log.New("module", "bank")
		l.SetHandler(log.DiscardHandler())
	}
	return &Keeper{log: l}
}

// InitBalance overwrites the balance of [addr] with [coins].
// It is a setup operation and must not be called during an execution.
func (k *Keeper) InitBalance(store database.Database, addr types.Addr, coins types.Coins) error {
	if err := coins.Validate(); err != nil {
		return err
	}
	k.log.Debug("init balance", "address", addr, "coins", coins)
	return newBalanceState(store).Set(addr, coins)
}

// Balance returns the balance of [addr].
func (k *Keeper) Balance(store database.Database, addr types.Addr) (types.Coins, error) {
	return newBalanceState(store).Get(addr)
}

func (k *Keeper) Execute(
	store database.Database,
	router module.Router,
	_ types.BlockInfo,
	sender types.Addr,
	msg types.Msg,
) (types.AppResponse, error) {
	switch m := msg.(type) {
	case types.BankSend:
		return k.send(store, router.Api(), sender, m)
	case types.BankBurn:
		return k.burn(store, sender, m)
	default:
		return types.AppResponse{}, types.Validationf("bank cannot execute %T", msg)
	}
}

func (k *Keeper) send(store database.Database, api module.Api, sender types.Addr, m types.BankSend) (types.AppResponse, error) {
	to, err := api.AddrValidate(string(m.ToAddress))
	if err != nil {
		return types.AppResponse{}, err
	}
	amount, err := checkAmount(m.Amount)
	if err != nil {
		return types.AppResponse{}, err
	}

	s := newBalanceState(store)
	if err := s.Sub(sender, amount); err != nil {
		return types.AppResponse{}, err
	}
	if err := s.Add(to, amount); err != nil {
		return types.AppResponse{}, err
	}

	event := types.NewEvent(EventTransfer).
		Add(AttrRecipient, string(to)).
		Add(AttrSender, string(sender)).
		Add(AttrAmount, amount.String())
	return types.AppResponse{Events: []types.Event{event}}, nil
}

func (k *Keeper) burn(store database.Database, sender types.Addr, m types.BankBurn) (types.AppResponse, error) {
	amount, err := checkAmount(m.Amount)
	if err != nil {
		return types.AppResponse{}, err
	}
	if err := newBalanceState(store).Sub(sender, amount); err != nil {
		return types.AppResponse{}, err
	}

	event := types.NewEvent(EventBurn).
		Add(AttrBurner, string(sender)).
		Add(AttrAmount, amount.String())
	return types.AppResponse{Events: []types.Event{event}}, nil
}

func (k *Keeper) Sudo(
	store database.Database,
	router module.Router,
	_ types.BlockInfo,
	msg types.SudoMsg,
) (types.AppResponse, error) {
	m, ok := msg.(types.BankMint)
	if !ok {
		return types.AppResponse{}, types.Validationf("bank cannot sudo %T", msg)
	}
	to, err := router.Api().AddrValidate(string(m.ToAddress))
	if err != nil {
		return types.AppResponse{}, err
	}
	amount, err := checkAmount(m.Amount)
	if err != nil {
		return types.AppResponse{}, err
	}
	if err := newBalanceState(store).Add(to, amount); err != nil {
		return types.AppResponse{}, err
	}
	return types.AppResponse{}, nil
}

func (k *Keeper) Query(
	store database.Database,
	_ module.Querier,
	_ types.BlockInfo,
	req types.QueryRequest,
) ([]byte, error) {
	s := newBalanceState(store)
	switch q := req.(type) {
	case types.BankBalanceQuery:
		coins, err := s.Get(q.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(types.BalanceResponse{Amount: types.NewCoin(coins.AmountOf(q.Denom), q.Denom)})
	case types.BankAllBalancesQuery:
		coins, err := s.Get(q.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(types.AllBalancesResponse{Amount: coins})
	case types.BankSupplyQuery:
		total, err := s.Supply(q.Denom)
		if err != nil {
			return nil, err
		}
		return json.Marshal(types.SupplyResponse{Amount: types.NewCoin(total, q.Denom)})
	default:
		return nil, types.Validationf("bank cannot answer %T", req)
	}
}

// checkAmount normalizes [amount] and rejects an empty one.
func checkAmount(amount types.Coins) (types.Coins, error) {
	coins, err := types.Normalize(amount)
	if err != nil {
		return nil, err
	}
	if coins.IsZero() {
		return nil, types.Validationf("amount %s is empty", fmt.Sprint(amount))
	}
	return coins, nil
}
