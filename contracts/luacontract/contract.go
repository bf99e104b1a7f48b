// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package luacontract runs contracts written in Lua. Each entry point is a
// global function of the script:
//
//	instantiate(msg)  execute(msg)  query(msg)
//	sudo(msg)         migrate(msg)  reply(id, ok, payload)
//
// Messages are decoded from JSON into Lua values. Every call runs in a fresh
// interpreter, so scripts keep state only through storage.
package luacontract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/ava-labs/multitest/types"
	"github.com/ava-labs/multitest/wasm"
)

// Entry point names.
const (
	EntryInstantiate = "instantiate"
	EntryExecute     = "execute"
	EntryQuery       = "query"
	EntrySudo        = "sudo"
	EntryMigrate     = "migrate"
	EntryReply       = "reply"
)

var (
	errEmptySource = errors.New("script is empty")

	positionRegex = regexp.MustCompile(`^\S+:\d+: `)

	_ wasm.Contract = &Contract{}
)

// Contract is a wasm.Contract backed by a Lua script.
type Contract struct {
	name   string
	source string
}

// New compiles [source] to check it and returns a contract running it.
func New(name, source string) (*Contract, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%s: %w", name, errEmptySource)
	}
	l := lua.NewState()
	if err := lua.LoadBuffer(l, source, "@"+name, "t"); err != nil {
		return nil, fmt.Errorf("couldn't compile %s: %w", name, err)
	}
	return &Contract{name: name, source: source}, nil
}

// Load reads the script at [path].
func Load(path string) (*Contract, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(filepath.Base(path), string(b))
}

// Name returns the name the script was loaded under.
func (c *Contract) Name() string { return c.name }

func (c *Contract) Instantiate(deps wasm.Deps, env types.Env, info types.MessageInfo, msg []byte) (types.Response, error) {
	return c.respond(deps, env, &info, EntryInstantiate, msg)
}

func (c *Contract) Execute(deps wasm.Deps, env types.Env, info types.MessageInfo, msg []byte) (types.Response, error) {
	return c.respond(deps, env, &info, EntryExecute, msg)
}

func (c *Contract) Sudo(deps wasm.Deps, env types.Env, msg []byte) (types.Response, error) {
	return c.respond(deps, env, nil, EntrySudo, msg)
}

func (c *Contract) Migrate(deps wasm.Deps, env types.Env, msg []byte) (types.Response, error) {
	return c.respond(deps, env, nil, EntryMigrate, msg)
}

func (c *Contract) Reply(deps wasm.Deps, env types.Env, reply types.Reply) (types.Response, error) {
	x := newCall(deps, env, nil, false)
	err := c.run(x, EntryReply, 0, func(l *lua.State) int {
		l.PushInteger(int(reply.ID))
		l.PushBoolean(reply.Result.IsOk())
		if reply.Result.IsOk() {
			l.PushString(string(reply.Result.Ok.Data))
		} else {
			l.PushString(reply.Result.Err)
		}
		return 3
	})
	if err != nil {
		return types.Response{}, err
	}
	return x.res, nil
}

// Query JSON encodes whatever the query entry point returns.
func (c *Contract) Query(deps wasm.Deps, env types.Env, msg []byte) ([]byte, error) {
	args, err := decodeMsg(msg)
	if err != nil {
		return nil, err
	}
	x := newCall(deps, env, nil, true)

	var out interface{}
	err = c.run(x, EntryQuery, 1, func(l *lua.State) int {
		pushValue(l, args)
		return 1
	}, func(l *lua.State) {
		out = toValue(l, -1)
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (c *Contract) respond(deps wasm.Deps, env types.Env, info *types.MessageInfo, entry string, msg []byte) (types.Response, error) {
	args, err := decodeMsg(msg)
	if err != nil {
		return types.Response{}, err
	}
	x := newCall(deps, env, info, false)
	err = c.run(x, entry, 0, func(l *lua.State) int {
		pushValue(l, args)
		return 1
	})
	if err != nil {
		return types.Response{}, err
	}
	return x.res, nil
}

// sandboxed are the standard libraries a script can use. os, io, package and
// debug stay closed.
var sandboxed = []lua.RegistryFunction{
	{Name: "_G", Function: lua.BaseOpen},
	{Name: "string", Function: lua.StringOpen},
	{Name: "table", Function: lua.TableOpen},
	{Name: "math", Function: lua.MathOpen},
}

// closedGlobals are base library functions that read files.
var closedGlobals = []string{"dofile", "loadfile"}

func openLibraries(l *lua.State) {
	for _, lib := range sandboxed {
		lua.Require(l, lib.Name, lib.Function, true)
		l.Pop(1)
	}
	for _, name := range closedGlobals {
		l.PushNil()
		l.SetGlobal(name)
	}
}

// run loads the script into a fresh interpreter, registers the host
// functions of [x] and calls [entry] with the arguments [push] leaves on the
// stack. [collect] reads the [results] values the entry point returned.
func (c *Contract) run(x *call, entry string, results int, push func(*lua.State) int, collect ...func(*lua.State)) error {
	l := lua.NewState()
	openLibraries(l)
	x.register(l)

	if err := lua.LoadBuffer(l, c.source, "@"+c.name, "t"); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return fmt.Errorf("%s: %s", c.name, luaError(err))
	}

	l.Global(entry)
	if !l.IsFunction(-1) {
		l.Pop(1)
		return fmt.Errorf("%s not implemented on the contract", entry)
	}
	args := push(l)
	if err := l.ProtectedCall(args, results, 0); err != nil {
		if x.err != nil {
			return x.err
		}
		return fmt.Errorf("%s: %s", entry, luaError(err))
	}
	for _, fn := range collect {
		fn(l)
	}
	return nil
}

// luaError strips the "chunk:line:" position Lua prefixes messages with.
func luaError(err error) string {
	return positionRegex.ReplaceAllString(err.Error(), "")
}

func decodeMsg(msg []byte) (interface{}, error) {
	if len(msg) == 0 {
		return map[string]interface{}{}, nil
	}
	var v interface{}
	if err := json.Unmarshal(msg, &v); err != nil {
		return nil, types.Validationf("couldn't parse message: %s", err)
	}
	return v, nil
}
