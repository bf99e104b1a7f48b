// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router dispatches operations, privileged operations and queries to
// the module registered for their family, keeping an explicit call stack
// bounded by a maximum depth.
package router

import (
	"errors"
	"fmt"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/multitest/module"
	"github.com/ava-labs/multitest/storage"
	"github.com/ava-labs/multitest/types"
)

// DefaultMaxCallDepth bounds how many dispatches may be open at once.
const DefaultMaxCallDepth = 64

var (
	errFamilyRequired    = errors.New("family is required")
	errModuleRequired    = errors.New("module is required")
	errAlreadyRegistered = errors.New("family already registered")
	errInvalidMaxDepth   = errors.New("max call depth must be positive")

	_ module.Router = &Router{}
)

// frame is one open dispatch on the call stack.
type frame struct {
	kind   string
	family types.Family
	sender types.Addr
	store  database.Database
}

// Router holds one module per family and is the only channel through which
// modules reach each other. It is not safe for concurrent use; callers
// serialize top-level executions.
type Router struct {
	modules  map[types.Family]module.Module
	api      module.Api
	maxDepth int
	stack    []frame
	log      log.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithMaxCallDepth sets the maximum number of nested dispatches.
func WithMaxCallDepth(depth int) Option {
	return func(r *Router) { r.maxDepth = depth }
}

// WithLogger sets the router's logger.
func WithLogger(l log.Logger) Option {
	return func(r *Router) { r.log = l }
}

// New returns a Router without any module.
func New(api module.Api, opts ...Option) (*Router, error) {
	r := &Router{
		modules:  make(map[types.Family]module.Module),
		api:      api,
		maxDepth: DefaultMaxCallDepth,
		log:      discardLogger("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxDepth <= 0 {
		return nil, errInvalidMaxDepth
	}
	return r, nil
}

func discardLogger(name string) log.Logger {
	l := log.New("module", name)
	l.SetHandler(log.DiscardHandler())
	return l
}

// Fork returns a Router sharing every registered module but with its own,
// empty call stack. Use it to serve calls from another goroutine.
func (r *Router) Fork() *Router {
	modules := make(map[types.Family]module.Module, len(r.modules))
	for family, m := range r.modules {
		modules[family] = m
	}
	return &Router{
		modules:  modules,
		api:      r.api,
		maxDepth: r.maxDepth,
		log:      r.log,
	}
}

// Register makes [m] the owner of [family].
func (r *Router) Register(family types.Family, m module.Module) error {
	switch {
	case family == "":
		return errFamilyRequired
	case m == nil:
		return errModuleRequired
	}
	if _, ok := r.modules[family]; ok {
		return fmt.Errorf("%w: %s", errAlreadyRegistered, family)
	}
	r.modules[family] = m
	return nil
}

// Module returns the module registered for [family].
func (r *Router) Module(family types.Family) (module.Module, bool) {
	m, ok := r.modules[family]
	return m, ok
}

func (r *Router) Api() module.Api { return r.api }

// Depth returns the number of dispatches currently open.
func (r *Router) Depth() int { return len(r.stack) }

// MaxDepth returns the configured maximum call depth.
func (r *Router) MaxDepth() int { return r.maxDepth }

// Execute forwards [msg] to the module owning its family.
func (r *Router) Execute(store database.Database, block types.BlockInfo, sender types.Addr, msg types.Msg) (types.AppResponse, error) {
	if msg == nil {
		return types.AppResponse{}, types.Validationf("nil message from %s", sender)
	}
	family := msg.Family()
	m, err := r.lookup(family)
	if err != nil {
		return types.AppResponse{}, err
	}
	if err := r.push(frame{kind: "execute", family: family, sender: sender, store: store}); err != nil {
		return types.AppResponse{}, err
	}
	defer r.pop()

	r.log.Debug("dispatching message", "family", family, "type", fmt.Sprintf("%T", msg), "sender", sender, "depth", len(r.stack))
	return m.Execute(store, r, block, sender, msg)
}

// Sudo forwards the privileged [msg] to the module owning its family.
func (r *Router) Sudo(store database.Database, block types.BlockInfo, msg types.SudoMsg) (types.AppResponse, error) {
	if msg == nil {
		return types.AppResponse{}, types.Validationf("nil sudo message")
	}
	family := msg.Family()
	m, err := r.lookup(family)
	if err != nil {
		return types.AppResponse{}, err
	}
	if err := r.push(frame{kind: "sudo", family: family, store: store}); err != nil {
		return types.AppResponse{}, err
	}
	defer r.pop()

	r.log.Debug("dispatching sudo", "family", family, "type", fmt.Sprintf("%T", msg), "depth", len(r.stack))
	return m.Sudo(store, r, block, msg)
}

// Query answers [req] against [store]. Whatever the module writes while
// answering is dropped.
func (r *Router) Query(store database.Database, block types.BlockInfo, req types.QueryRequest) ([]byte, error) {
	if req == nil {
		return nil, types.Validationf("nil query")
	}
	family := req.Family()
	m, err := r.lookup(family)
	if err != nil {
		return nil, err
	}
	if err := r.push(frame{kind: "query", family: family, store: store}); err != nil {
		return nil, err
	}
	defer r.pop()

	scratch := storage.NewOverlay(store)
	defer scratch.Discard()

	return m.Query(scratch, r.Querier(scratch, block), block, req)
}

// Enter pushes a frame of [kind] that [leave] pops.
func (r *Router) Enter(kind string, family types.Family) (func(), error) {
	if err := r.push(frame{kind: kind, family: family}); err != nil {
		return nil, err
	}
	r.log.Debug("entered frame", "kind", kind, "family", family, "depth", len(r.stack))
	return r.pop, nil
}

// Querier returns a query capability bound to [store].
func (r *Router) Querier(store database.Database, block types.BlockInfo) module.Querier {
	return &querier{router: r, store: store, block: block}
}

func (r *Router) lookup(family types.Family) (module.Module, error) {
	m, ok := r.modules[family]
	if !ok {
		return nil, types.Routingf("no module registered for family %q", family)
	}
	return m, nil
}

func (r *Router) push(f frame) error {
	if len(r.stack) >= r.maxDepth {
		return types.RecursionLimitf("%s %s: call depth %d reached", f.kind, f.family, r.maxDepth)
	}
	r.stack = append(r.stack, f)
	return nil
}

func (r *Router) pop() {
	r.stack[len(r.stack)-1] = frame{}
	r.stack = r.stack[:len(r.stack)-1]
}

type querier struct {
	router *Router
	store  database.Database
	block  types.BlockInfo
}

func (q *querier) Query(req types.QueryRequest) ([]byte, error) {
	return q.router.Query(q.store, q.block, req)
}
