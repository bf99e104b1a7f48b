// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package module defines the capabilities every pluggable subsystem
// implements and the capabilities handed to it: the Router it dispatches
// through, the read-only Querier and the address Api.
package module

import (
	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/multitest/types"
)

// Module is a pluggable subsystem owning one message family.
//
// Modules never hold references to each other. Cross-module effects go
// through the Router passed to Execute and Sudo.
type Module interface {
	// Execute performs [msg] on behalf of [sender]. Malformed input is
	// reported as an error, never a panic.
	Execute(
		store database.Database,
		router Router,
		block types.BlockInfo,
		sender types.Addr,
		msg types.Msg,
	) (types.AppResponse, error)

	// Query answers [req]. It must not mutate [store], even transitively.
	Query(
		store database.Database,
		querier Querier,
		block types.BlockInfo,
		req types.QueryRequest,
	) ([]byte, error)

	// Sudo performs a privileged operation. It is reachable only through
	// Router.Sudo, which users and contracts cannot invoke.
	Sudo(
		store database.Database,
		router Router,
		block types.BlockInfo,
		msg types.SudoMsg,
	) (types.AppResponse, error)
}

// Router dispatches operations to the module owning their family.
type Router interface {
	Execute(store database.Database, block types.BlockInfo, sender types.Addr, msg types.Msg) (types.AppResponse, error)
	Sudo(store database.Database, block types.BlockInfo, msg types.SudoMsg) (types.AppResponse, error)
	Query(store database.Database, block types.BlockInfo, req types.QueryRequest) ([]byte, error)

	// Querier returns a read-only query capability that observes [store],
	// including every write pending in it.
	Querier(store database.Database, block types.BlockInfo) Querier

	// Enter opens a frame of [kind] on the call stack for work that is not a
	// module dispatch, such as delivering a reply. [leave] closes it. It
	// fails with a RecursionLimitError when the stack is full.
	Enter(kind string, family types.Family) (leave func(), err error)

	Api() Api
}

// Querier is the read-only query capability handed to executing code.
type Querier interface {
	Query(req types.QueryRequest) ([]byte, error)
}
