// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wasm

import (
	"encoding/json"
	"errors"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/multitest/module"
	"github.com/ava-labs/multitest/types"
)

var (
	errSudoNotImplemented    = errors.New("sudo not implemented on the contract")
	errReplyNotImplemented   = errors.New("reply not implemented on the contract")
	errMigrateNotImplemented = errors.New("migrate not implemented on the contract")

	_ Contract = &ContractWrapper{}
)

// Deps is what a contract entry point may touch: its own storage namespace,
// the address Api and a read-only querier.
type Deps struct {
	Storage database.Database
	Api     module.Api
	Querier module.Querier
}

// Contract is the code stored under a code id. Every payload is the raw JSON
// the caller sent.
type Contract interface {
	Instantiate(deps Deps, env types.Env, info types.MessageInfo, msg []byte) (types.Response, error)
	Execute(deps Deps, env types.Env, info types.MessageInfo, msg []byte) (types.Response, error)
	Query(deps Deps, env types.Env, msg []byte) ([]byte, error)
	Sudo(deps Deps, env types.Env, msg []byte) (types.Response, error)
	Reply(deps Deps, env types.Env, reply types.Reply) (types.Response, error)
	Migrate(deps Deps, env types.Env, msg []byte) (types.Response, error)
}

type (
	ContractFn   func(deps Deps, env types.Env, info types.MessageInfo, msg []byte) (types.Response, error)
	QueryFn      func(deps Deps, env types.Env, msg []byte) ([]byte, error)
	PermissionFn func(deps Deps, env types.Env, msg []byte) (types.Response, error)
	ReplyFn      func(deps Deps, env types.Env, reply types.Reply) (types.Response, error)
)

// ContractWrapper builds a Contract out of plain functions. Sudo, reply and
// migrate are optional.
type ContractWrapper struct {
	execute     ContractFn
	instantiate ContractFn
	query       QueryFn
	sudo        PermissionFn
	reply       ReplyFn
	migrate     PermissionFn
}

// NewContractWrapper returns a contract with the three mandatory entry points.
func NewContractWrapper(execute, instantiate ContractFn, query QueryFn) *ContractWrapper {
	return &ContractWrapper{
		execute:     execute,
		instantiate: instantiate,
		query:       query,
	}
}

func (w *ContractWrapper) WithSudo(fn PermissionFn) *ContractWrapper {
	w.sudo = fn
	return w
}

func (w *ContractWrapper) WithReply(fn ReplyFn) *ContractWrapper {
	w.reply = fn
	return w
}

func (w *ContractWrapper) WithMigrate(fn PermissionFn) *ContractWrapper {
	w.migrate = fn
	return w
}

func (w *ContractWrapper) Instantiate(deps Deps, env types.Env, info types.MessageInfo, msg []byte) (types.Response, error) {
	return w.instantiate(deps, env, info, msg)
}

func (w *ContractWrapper) Execute(deps Deps, env types.Env, info types.MessageInfo, msg []byte) (types.Response, error) {
	return w.execute(deps, env, info, msg)
}

func (w *ContractWrapper) Query(deps Deps, env types.Env, msg []byte) ([]byte, error) {
	return w.query(deps, env, msg)
}

func (w *ContractWrapper) Sudo(deps Deps, env types.Env, msg []byte) (types.Response, error) {
	if w.sudo == nil {
		return types.Response{}, errSudoNotImplemented
	}
	return w.sudo(deps, env, msg)
}

func (w *ContractWrapper) Reply(deps Deps, env types.Env, reply types.Reply) (types.Response, error) {
	if w.reply == nil {
		return types.Response{}, errReplyNotImplemented
	}
	return w.reply(deps, env, reply)
}

func (w *ContractWrapper) Migrate(deps Deps, env types.Env, msg []byte) (types.Response, error) {
	if w.migrate == nil {
		return types.Response{}, errMigrateNotImplemented
	}
	return w.migrate(deps, env, msg)
}

// Typed adapts a function taking a decoded message into a ContractFn.
func Typed[T any](fn func(Deps, types.Env, types.MessageInfo, T) (types.Response, error)) ContractFn {
	return func(deps Deps, env types.Env, info types.MessageInfo, msg []byte) (types.Response, error) {
		var m T
		if err := decode(msg, &m); err != nil {
			return types.Response{}, err
		}
		return fn(deps, env, info, m)
	}
}

// TypedQuery adapts a query function taking a decoded message and returning
// a value that is JSON encoded.
func TypedQuery[T, R any](fn func(Deps, types.Env, T) (R, error)) QueryFn {
	return func(deps Deps, env types.Env, msg []byte) ([]byte, error) {
		var m T
		if err := decode(msg, &m); err != nil {
			return nil, err
		}
		r, err := fn(deps, env, m)
		if err != nil {
			return nil, err
		}
		return json.Marshal(r)
	}
}

// TypedPermission adapts a sudo or migrate function taking a decoded message.
func TypedPermission[T any](fn func(Deps, types.Env, T) (types.Response, error)) PermissionFn {
	return func(deps Deps, env types.Env, msg []byte) (types.Response, error) {
		var m T
		if err := decode(msg, &m); err != nil {
			return types.Response{}, err
		}
		return fn(deps, env, m)
	}
}

func decode(msg []byte, v interface{}) error {
	if len(msg) == 0 {
		msg = []byte("{}")
	}
	if err := json.Unmarshal(msg, v); err != nil {
		return types.Validationf("couldn't parse message: %s", err)
	}
	return nil
}
