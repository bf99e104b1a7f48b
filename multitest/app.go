// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package multitest is an in-process, multi-module blockchain execution
// environment for testing contracts. An App owns a root store, the current
// block, a router and the bank and wasm modules. Every state-changing call
// runs inside an overlay and is committed all-or-nothing.
package multitest

import (
	"fmt"
	"sync"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/version"

	"github.com/ava-labs/multitest/bank"
	"github.com/ava-labs/multitest/module"
	"github.com/ava-labs/multitest/router"
	"github.com/ava-labs/multitest/storage"
	"github.com/ava-labs/multitest/types"
	"github.com/ava-labs/multitest/wasm"
)

// Name is the name of the environment, also used as its RPC service name.
const Name = "multitest"

// Version of the environment.
var Version = version.NewDefaultVersion(0, 1, 0)

// App is a test blockchain. Top-level calls are serialized: a call made
// while another is in flight, including one made from contract code, fails
// with a ValidationError. Queries may run at any time and only ever see
// committed state.
type App struct {
	// held for the whole of every state-changing call
	exec sync.Mutex

	blockLock sync.RWMutex
	block     types.BlockInfo

	root   database.Database
	api    module.Api
	router *router.Router
	bank   *bank.Keeper
	wasm   *wasm.Keeper
	log    log.Logger
}

// New builds an App. The bank, wasm and custom families are registered
// unless replaced with WithModule.
func New(opts ...Option) (*App, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		cfg.store = storage.NewMem()
	}

	r, err := router.New(cfg.api,
		router.WithMaxCallDepth(cfg.MaxCallDepth),
		router.WithLogger(cfg.log.New("component", "router")),
	)
	if err != nil {
		return nil, err
	}

	a := &App{
		block:  cfg.Block,
		root:   cfg.store,
		api:    cfg.api,
		router: r,
		bank:   bank.New(cfg.log.New("component", "bank")),
		wasm:   wasm.New(cfg.api, cfg.log.New("component", "wasm")),
		log:    cfg.log,
	}

	modules := map[types.Family]module.Module{
		types.FamilyBank:   a.bank,
		types.FamilyWasm:   a.wasm,
		types.FamilyCustom: module.FailingModule{Family: types.FamilyCustom},
	}
	for family, m := range cfg.modules {
		modules[family] = m
	}
	for family, m := range modules {
		if err := r.Register(family, m); err != nil {
			return nil, err
		}
	}

	for _, b := range cfg.Genesis {
		if err := a.InitBalance(b.Address, b.Coins); err != nil {
			return nil, fmt.Errorf("couldn't apply genesis balance of %s: %w", b.Address, err)
		}
	}
	a.log.Info("app initialized",
		"chainID", cfg.Block.ChainID,
		"height", cfg.Block.Height,
		"maxCallDepth", cfg.MaxCallDepth,
		"genesisAccounts", len(cfg.Genesis),
	)
	return a, nil
}

// Api returns the address Api.
func (a *App) Api() module.Api { return a.api }

// Router returns the router every call is dispatched through.
func (a *App) Router() *router.Router { return a.router }

// Bank returns the bank keeper.
func (a *App) Bank() *bank.Keeper { return a.bank }

// Wasm returns the wasm keeper.
func (a *App) Wasm() *wasm.Keeper { return a.wasm }

// Execute runs [msg] on behalf of [sender]. On error nothing is written.
func (a *App) Execute(sender types.Addr, msg types.Msg) (types.AppResponse, error) {
	res, err := a.ExecuteMultiple(sender, msg)
	if err != nil {
		return types.AppResponse{}, err
	}
	return res[0], nil
}

// ExecuteMultiple runs [msgs] in order on behalf of [sender] and commits
// them together. If any fails nothing is written.
func (a *App) ExecuteMultiple(sender types.Addr, msgs ...types.Msg) ([]types.AppResponse, error) {
	if _, err := a.api.AddrValidate(string(sender)); err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if _, ok := msg.(types.SudoMsg); ok {
			return nil, types.Validationf("%T is privileged and can only be run through Sudo", msg)
		}
	}

	out := make([]types.AppResponse, 0, len(msgs))
	err := a.transact(func(store database.Database, block types.BlockInfo) error {
		for i, msg := range msgs {
			res, err := a.router.Execute(store, block, sender, msg)
			if err != nil {
				if len(msgs) > 1 {
					return fmt.Errorf("message %d: %w", i, err)
				}
				return err
			}
			out = append(out, res)
		}
		return nil
	})
	if err != nil {
		a.log.Debug("execution failed", "sender", sender, "err", err)
		return nil, err
	}
	return out, nil
}

// Sudo runs the privileged [msg]. On error nothing is written.
func (a *App) Sudo(msg types.SudoMsg) (types.AppResponse, error) {
	var res types.AppResponse
	err := a.transact(func(store database.Database, block types.BlockInfo) error {
		var err error
		res, err = a.router.Sudo(store, block, msg)
		return err
	})
	return res, err
}

// Query answers [req] against committed state.
func (a *App) Query(req types.QueryRequest) ([]byte, error) {
	return a.router.Fork().Query(a.root, a.Block(), req)
}

// transact runs [fn] over a fresh overlay of the root store and commits it
// if [fn] succeeds.
func (a *App) transact(fn func(store database.Database, block types.BlockInfo) error) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.exec.Unlock()

	o := storage.NewOverlay(a.root)
	defer o.Discard()

	if err := fn(o, a.Block()); err != nil {
		return err
	}
	return o.Commit()
}

// lock takes the execution lock or fails if another call holds it.
func (a *App) lock() error {
	if !a.exec.TryLock() {
		return types.Validationf("a call is already in flight")
	}
	return nil
}

// StoreCode registers [c] with the default creator and returns its code id.
func (a *App) StoreCode(c wasm.Contract) (uint64, error) {
	return a.StoreCodeWithCreator("creator", c)
}

// StoreCodeWithCreator registers [c] on behalf of [creator].
func (a *App) StoreCodeWithCreator(creator types.Addr, c wasm.Contract) (uint64, error) {
	if c == nil {
		return 0, types.Validationf("contract is required")
	}
	if err := a.lock(); err != nil {
		return 0, err
	}
	defer a.exec.Unlock()

	return a.wasm.StoreCode(creator, c), nil
}

// InitBalance overwrites the balance of [addr].
func (a *App) InitBalance(addr types.Addr, coins types.Coins) error {
	if _, err := a.api.AddrValidate(string(addr)); err != nil {
		return err
	}
	if err := a.lock(); err != nil {
		return err
	}
	defer a.exec.Unlock()

	return a.bank.InitBalance(a.root, addr, coins)
}

// Block returns the current block.
func (a *App) Block() types.BlockInfo {
	a.blockLock.RLock()
	defer a.blockLock.RUnlock()

	return a.block
}

// SetBlock moves the App to [b].
func (a *App) SetBlock(b types.BlockInfo) error {
	return a.UpdateBlock(func(cur *types.BlockInfo) { *cur = b })
}

// UpdateBlock applies [fn] to the current block.
func (a *App) UpdateBlock(fn func(*types.BlockInfo)) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.exec.Unlock()

	a.blockLock.Lock()
	defer a.blockLock.Unlock()

	fn(&a.block)
	a.log.Debug("block updated", "height", a.block.Height, "time", a.block.Time)
	return nil
}

// NextBlock advances one block.
func (a *App) NextBlock() error {
	return a.UpdateBlock(func(b *types.BlockInfo) { *b = b.Next() })
}
