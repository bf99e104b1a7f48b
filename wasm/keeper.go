// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wasm implements the contract module: a registry of contract code,
// contract instantiation, execution, migration and privileged calls, and the
// reply entry point the engine calls back into.
package wasm

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/multitest/engine"
	"github.com/ava-labs/multitest/module"
	"github.com/ava-labs/multitest/types"
)

var (
	_ module.Module  = &Keeper{}
	_ engine.Replier = &Keeper{}
)

type code struct {
	contract Contract
	creator  types.Addr
}

// Keeper is the wasm module. Code is kept in memory and only grows; contract
// metadata and storage live in the store in scope.
type Keeper struct {
	api module.Api
	log log.Logger

	lock  sync.RWMutex
	codes []code
}

// New returns a wasm keeper validating addresses with [api] and logging to
// [l].
func New(api module.Api, l log.Logger) *Keeper {
	if api == nil {
		api = module.MockApi{}
	}
	if l == nil {
		l = log.New("module", "wasm")
		l.SetHandler(log.DiscardHandler())
	}
	return &Keeper{api: api, log: l}
}

// StoreCode registers [c] and returns its code id. Ids start at 1 and are
// never reused.
func (k *Keeper) StoreCode(creator types.Addr, c Contract) uint64 {
	k.lock.Lock()
	k.codes = append(k.codes, code{contract: c, creator: creator})
	id := uint64(len(k.codes))
	k.lock.Unlock()

	k.log.Debug("stored code", "codeID", id, "creator", creator)
	return id
}

// CodeCount returns how many codes were stored.
func (k *Keeper) CodeCount() int {
	k.lock.RLock()
	defer k.lock.RUnlock()

	return len(k.codes)
}

func (k *Keeper) code(id uint64) (code, error) {
	k.lock.RLock()
	defer k.lock.RUnlock()

	if id == 0 || id > uint64(len(k.codes)) {
		return code{}, types.Validationf("unknown code id %d", id)
	}
	return k.codes[id-1], nil
}

// ContractInfo returns the metadata of [addr] as seen from [store].
func (k *Keeper) ContractInfo(store database.Database, addr types.Addr) (ContractInfo, error) {
	return newState(store).GetContract(addr)
}

// ContractStorage returns the storage namespace of [addr] over [store].
func (k *Keeper) ContractStorage(store database.Database, addr types.Addr) database.Database {
	return contractStorage(store, addr)
}

func (k *Keeper) Execute(
	store database.Database,
	router module.Router,
	block types.BlockInfo,
	sender types.Addr,
	msg types.Msg,
) (types.AppResponse, error) {
	switch m := msg.(type) {
	case types.WasmInstantiate:
		return k.instantiate(store, router, block, sender, m)
	case types.WasmExecute:
		return k.execute(store, router, block, sender, m)
	case types.WasmMigrate:
		return k.migrate(store, router, block, sender, m)
	case types.WasmUpdateAdmin:
		return k.setAdmin(store, router, sender, m.ContractAddr, m.Admin)
	case types.WasmClearAdmin:
		return k.setAdmin(store, router, sender, m.ContractAddr, "")
	default:
		return types.AppResponse{}, types.Validationf("wasm cannot execute %T", msg)
	}
}

func (k *Keeper) Sudo(
	store database.Database,
	router module.Router,
	block types.BlockInfo,
	msg types.SudoMsg,
) (types.AppResponse, error) {
	m, ok := msg.(types.WasmSudo)
	if !ok {
		return types.AppResponse{}, types.Validationf("wasm cannot sudo %T", msg)
	}
	contract, err := k.lookup(store, m.ContractAddr)
	if err != nil {
		return types.AppResponse{}, err
	}
	res, err := k.call(m.ContractAddr, "sudo", func() (types.Response, error) {
		return contract.Sudo(k.deps(store, router, block, m.ContractAddr), k.env(block, m.ContractAddr), m.Msg)
	})
	if err != nil {
		return types.AppResponse{}, err
	}
	return k.resolve(store, router, block, m.ContractAddr, actionEvent(EventSudo, m.ContractAddr), res)
}

// Reply delivers [reply] to [contract]. It is called by the engine.
func (k *Keeper) Reply(
	store database.Database,
	router module.Router,
	block types.BlockInfo,
	contract types.Addr,
	reply types.Reply,
) (types.AppResponse, error) {
	c, err := k.lookup(store, contract)
	if err != nil {
		return types.AppResponse{}, err
	}
	res, err := k.call(contract, "reply", func() (types.Response, error) {
		return c.Reply(k.deps(store, router, block, contract), k.env(block, contract), reply)
	})
	if err != nil {
		return types.AppResponse{}, err
	}
	return k.resolve(store, router, block, contract, replyEvent(contract, reply), res)
}

func (k *Keeper) instantiate(
	store database.Database,
	router module.Router,
	block types.BlockInfo,
	sender types.Addr,
	m types.WasmInstantiate,
) (types.AppResponse, error) {
	if m.Label == "" {
		return types.AppResponse{}, types.Validationf("label is required on all contracts")
	}
	c, err := k.code(m.CodeID)
	if err != nil {
		return types.AppResponse{}, err
	}
	var admin types.Addr
	if m.Admin != "" {
		if admin, err = router.Api().AddrValidate(string(m.Admin)); err != nil {
			return types.AppResponse{}, err
		}
	}

	s := newState(store)
	addr, err := s.NextAddress()
	if err != nil {
		return types.AppResponse{}, err
	}
	info := ContractInfo{
		CodeID:  m.CodeID,
		Creator: sender,
		Admin:   admin,
		Label:   m.Label,
		Created: block.Height,
	}
	if err := s.PutContract(addr, info); err != nil {
		return types.AppResponse{}, err
	}
	k.log.Debug("instantiating contract", "address", addr, "codeID", m.CodeID, "sender", sender)

	transfer, err := k.sendFunds(store, router, block, sender, addr, m.Funds)
	if err != nil {
		return types.AppResponse{}, err
	}
	res, err := k.call(addr, "instantiate", func() (types.Response, error) {
		return c.contract.Instantiate(
			k.deps(store, router, block, addr),
			k.env(block, addr),
			types.MessageInfo{Sender: sender, Funds: m.Funds},
			m.Msg,
		)
	})
	if err != nil {
		return types.AppResponse{}, err
	}

	out, err := k.resolve(store, router, block, addr, instantiateEvent(addr, m.CodeID), res)
	if err != nil {
		return types.AppResponse{}, err
	}
	data, err := types.InstantiateResponse{Address: string(addr), Data: out.Data}.Bytes()
	if err != nil {
		return types.AppResponse{}, err
	}
	return types.AppResponse{
		Events: append(transfer, out.Events...),
		Data:   data,
	}, nil
}

func (k *Keeper) execute(
	store database.Database,
	router module.Router,
	block types.BlockInfo,
	sender types.Addr,
	m types.WasmExecute,
) (types.AppResponse, error) {
	contract, err := k.lookup(store, m.ContractAddr)
	if err != nil {
		return types.AppResponse{}, err
	}
	transfer, err := k.sendFunds(store, router, block, sender, m.ContractAddr, m.Funds)
	if err != nil {
		return types.AppResponse{}, err
	}
	res, err := k.call(m.ContractAddr, "execute", func() (types.Response, error) {
		return contract.Execute(
			k.deps(store, router, block, m.ContractAddr),
			k.env(block, m.ContractAddr),
			types.MessageInfo{Sender: sender, Funds: m.Funds},
			m.Msg,
		)
	})
	if err != nil {
		return types.AppResponse{}, err
	}
	out, err := k.resolve(store, router, block, m.ContractAddr, actionEvent(EventExecute, m.ContractAddr), res)
	if err != nil {
		return types.AppResponse{}, err
	}
	out.Events = append(transfer, out.Events...)
	return out, nil
}

func (k *Keeper) migrate(
	store database.Database,
	router module.Router,
	block types.BlockInfo,
	sender types.Addr,
	m types.WasmMigrate,
) (types.AppResponse, error) {
	s := newState(store)
	info, err := s.GetContract(m.ContractAddr)
	if err != nil {
		return types.AppResponse{}, err
	}
	if info.Admin == "" || info.Admin != sender {
		return types.AppResponse{}, types.Validationf("only the admin of %s can migrate it", m.ContractAddr)
	}
	c, err := k.code(m.NewCodeID)
	if err != nil {
		return types.AppResponse{}, err
	}
	info.CodeID = m.NewCodeID
	if err := s.PutContract(m.ContractAddr, info); err != nil {
		return types.AppResponse{}, err
	}
	k.log.Debug("migrating contract", "address", m.ContractAddr, "codeID", m.NewCodeID)

	res, err := k.call(m.ContractAddr, "migrate", func() (types.Response, error) {
		return c.contract.Migrate(k.deps(store, router, block, m.ContractAddr), k.env(block, m.ContractAddr), m.Msg)
	})
	if err != nil {
		return types.AppResponse{}, err
	}
	return k.resolve(store, router, block, m.ContractAddr, migrateEvent(m.ContractAddr, m.NewCodeID), res)
}

func (k *Keeper) setAdmin(
	store database.Database,
	router module.Router,
	sender types.Addr,
	contract types.Addr,
	admin types.Addr,
) (types.AppResponse, error) {
	s := newState(store)
	info, err := s.GetContract(contract)
	if err != nil {
		return types.AppResponse{}, err
	}
	if info.Admin == "" || info.Admin != sender {
		return types.AppResponse{}, types.Validationf("only the admin of %s can change its admin", contract)
	}
	if admin != "" {
		if admin, err = router.Api().AddrValidate(string(admin)); err != nil {
			return types.AppResponse{}, err
		}
	}
	info.Admin = admin
	return types.AppResponse{}, s.PutContract(contract, info)
}

// Query answers smart, raw, contract info and code info queries.
func (k *Keeper) Query(
	store database.Database,
	querier module.Querier,
	block types.BlockInfo,
	req types.QueryRequest,
) ([]byte, error) {
	switch q := req.(type) {
	case types.WasmSmartQuery:
		contract, err := k.lookup(store, q.ContractAddr)
		if err != nil {
			return nil, err
		}
		deps := Deps{
			Storage: contractStorage(store, q.ContractAddr),
			Api:     k.api,
			Querier: querier,
		}
		var out []byte
		err = k.recover(q.ContractAddr, "query", func() error {
			var err error
			out, err = contract.Query(deps, k.env(block, q.ContractAddr), q.Msg)
			return err
		})
		return out, err
	case types.WasmRawQuery:
		if _, err := newState(store).GetContract(q.ContractAddr); err != nil {
			return nil, err
		}
		v, err := contractStorage(store, q.ContractAddr).Get(q.Key)
		if err == database.ErrNotFound {
			return nil, nil
		}
		return v, err
	case types.WasmContractInfoQuery:
		info, err := newState(store).GetContract(q.ContractAddr)
		if err != nil {
			return nil, err
		}
		return json.Marshal(types.ContractInfoResponse{
			CodeID:  info.CodeID,
			Creator: info.Creator,
			Admin:   info.Admin,
			Label:   info.Label,
			Created: info.Created,
		})
	case types.WasmCodeInfoQuery:
		c, err := k.code(q.CodeID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(types.CodeInfoResponse{CodeID: q.CodeID, Creator: c.creator})
	default:
		return nil, types.Validationf("wasm cannot answer %T", req)
	}
}

func (k *Keeper) lookup(store database.Database, addr types.Addr) (Contract, error) {
	info, err := newState(store).GetContract(addr)
	if err != nil {
		return nil, err
	}
	c, err := k.code(info.CodeID)
	if err != nil {
		return nil, err
	}
	return c.contract, nil
}

func (k *Keeper) sendFunds(
	store database.Database,
	router module.Router,
	block types.BlockInfo,
	sender types.Addr,
	to types.Addr,
	funds types.Coins,
) ([]types.Event, error) {
	if funds.IsZero() {
		return nil, nil
	}
	res, err := router.Execute(store, block, sender, types.BankSend{ToAddress: to, Amount: funds})
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}

func (k *Keeper) deps(store database.Database, router module.Router, block types.BlockInfo, contract types.Addr) Deps {
	return Deps{
		Storage: contractStorage(store, contract),
		Api:     router.Api(),
		Querier: router.Querier(store, block),
	}
}

func (k *Keeper) env(block types.BlockInfo, contract types.Addr) types.Env {
	return types.Env{Block: block, Contract: contract}
}

// resolve tags the contract's response with [action] and runs its
// submessages.
func (k *Keeper) resolve(
	store database.Database,
	router module.Router,
	block types.BlockInfo,
	contract types.Addr,
	action types.Event,
	res types.Response,
) (types.AppResponse, error) {
	events, err := contractEvents(action, contract, res)
	if err != nil {
		return types.AppResponse{}, err
	}
	return engine.Resolve(engine.Call{
		Store:    store,
		Router:   router,
		Block:    block,
		Contract: contract,
		Family:   types.FamilyWasm,
		Replier:  k,
		Log:      k.log,
	}, events, res.Data, res.Messages)
}

// call runs a contract entry point, turning both returned errors and panics
// into execution errors.
func (k *Keeper) call(contract types.Addr, entry string, fn func() (types.Response, error)) (types.Response, error) {
	var res types.Response
	err := k.recover(contract, entry, func() error {
		var err error
		res, err = fn()
		return err
	})
	return res, err
}

func (k *Keeper) recover(contract types.Addr, entry string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			k.log.Error("contract panicked", "address", contract, "entry", entry, "panic", r, "stack", string(debug.Stack()))
			err = types.Executionf("%s %s panicked: %v", contract, entry, r)
		}
	}()
	if err := fn(); err != nil {
		if types.KindOf(err) != nil {
			return err
		}
		return types.NewExecutionError(fmt.Errorf("%s %s: %w", contract, entry, err))
	}
	return nil
}
