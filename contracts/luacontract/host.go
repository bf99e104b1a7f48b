// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package luacontract

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shopify/go-lua"
	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/multitest/types"
	"github.com/ava-labs/multitest/wasm"
)

var errReadOnly = errors.New("storage is read-only during queries")

var replyModes = map[string]types.ReplyOn{
	"never":   types.ReplyNever,
	"success": types.ReplySuccess,
	"error":   types.ReplyError,
	"always":  types.ReplyAlways,
}

// call is the host side of one entry point invocation.
type call struct {
	deps  wasm.Deps
	env   types.Env
	info  *types.MessageInfo
	query bool

	res types.Response
	// err is the host error that aborted the script, if any.
	err error
}

func newCall(deps wasm.Deps, env types.Env, info *types.MessageInfo, query bool) *call {
	return &call{deps: deps, env: env, info: info, query: query}
}

// register installs the host functions as globals of [l].
func (x *call) register(l *lua.State) {
	l.PushGlobalTable()
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "storage_get", Function: x.storageGet},
		{Name: "storage_set", Function: x.storageSet},
		{Name: "storage_remove", Function: x.storageRemove},
		{Name: "sender", Function: x.sender},
		{Name: "contract_address", Function: x.contractAddress},
		{Name: "block_height", Function: x.blockHeight},
		{Name: "block_time", Function: x.blockTime},
		{Name: "chain_id", Function: x.chainID},
		{Name: "funds", Function: x.funds},
		{Name: "add_attribute", Function: x.addAttribute},
		{Name: "add_event", Function: x.addEvent},
		{Name: "set_data", Function: x.setData},
		{Name: "bank_send", Function: x.bankSend},
		{Name: "execute_contract", Function: x.executeContract},
		{Name: "query_balance", Function: x.queryBalance},
		{Name: "query_smart", Function: x.querySmart},
	}, 0)
	l.Pop(1)
}

// fail records [err] and raises it inside the interpreter.
func (x *call) fail(l *lua.State, err error) int {
	x.err = err
	lua.Errorf(l, "%s", err.Error())
	return 0
}

func (x *call) storageGet(l *lua.State) int {
	v, err := x.deps.Storage.Get([]byte(lua.CheckString(l, 1)))
	switch {
	case errors.Is(err, database.ErrNotFound):
		l.PushNil()
	case err != nil:
		return x.fail(l, err)
	default:
		l.PushString(string(v))
	}
	return 1
}

func (x *call) storageSet(l *lua.State) int {
	key, value := lua.CheckString(l, 1), lua.CheckString(l, 2)
	if x.query {
		return x.fail(l, errReadOnly)
	}
	if err := x.deps.Storage.Put([]byte(key), []byte(value)); err != nil {
		return x.fail(l, err)
	}
	return 0
}

func (x *call) storageRemove(l *lua.State) int {
	key := lua.CheckString(l, 1)
	if x.query {
		return x.fail(l, errReadOnly)
	}
	if err := x.deps.Storage.Delete([]byte(key)); err != nil {
		return x.fail(l, err)
	}
	return 0
}

func (x *call) sender(l *lua.State) int {
	if x.info == nil {
		l.PushNil()
	} else {
		l.PushString(string(x.info.Sender))
	}
	return 1
}

func (x *call) contractAddress(l *lua.State) int {
	l.PushString(string(x.env.Contract))
	return 1
}

func (x *call) blockHeight(l *lua.State) int {
	l.PushInteger(int(x.env.Block.Height))
	return 1
}

func (x *call) blockTime(l *lua.State) int {
	l.PushInteger(int(x.env.Block.Time.Unix()))
	return 1
}

func (x *call) chainID(l *lua.State) int {
	l.PushString(x.env.Block.ChainID)
	return 1
}

// funds(denom) returns the amount of [denom] sent with the message.
func (x *call) funds(l *lua.State) int {
	denom := lua.CheckString(l, 1)
	if x.info == nil {
		l.PushInteger(0)
	} else {
		l.PushInteger(int(x.info.Funds.AmountOf(denom)))
	}
	return 1
}

func (x *call) addAttribute(l *lua.State) int {
	x.res = x.res.AddAttribute(lua.CheckString(l, 1), lua.CheckString(l, 2))
	return 0
}

// add_event(type, key1, value1, key2, value2, ...)
func (x *call) addEvent(l *lua.State) int {
	e := types.NewEvent(lua.CheckString(l, 1))
	top := l.Top()
	if top%2 == 0 {
		lua.ArgumentError(l, top, "attribute without a value")
	}
	for i := 2; i < top; i += 2 {
		e = e.Add(lua.CheckString(l, i), lua.CheckString(l, i+1))
	}
	x.res = x.res.AddEvent(e)
	return 0
}

func (x *call) setData(l *lua.State) int {
	x.res = x.res.SetData([]byte(lua.CheckString(l, 1)))
	return 0
}

// bank_send(to, amount, denom [, opts])
func (x *call) bankSend(l *lua.State) int {
	to := lua.CheckString(l, 1)
	amount := checkAmount(l, 2)
	denom := lua.CheckString(l, 3)
	msg := types.BankSend{
		ToAddress: types.Addr(to),
		Amount:    types.Coins{types.NewCoin(amount, denom)},
	}
	x.res = x.res.AddSubMessage(subMsg(l, 4, msg))
	return 0
}

// execute_contract(addr, msg [, opts]) where opts may carry funds = {denom = amount}.
func (x *call) executeContract(l *lua.State) int {
	addr := lua.CheckString(l, 1)
	payload, err := encodeArg(l, 2)
	if err != nil {
		return x.fail(l, err)
	}
	funds, err := fundsOpt(l, 3)
	if err != nil {
		return x.fail(l, err)
	}
	msg := types.WasmExecute{
		ContractAddr: types.Addr(addr),
		Msg:          payload,
		Funds:        funds,
	}
	x.res = x.res.AddSubMessage(subMsg(l, 3, msg))
	return 0
}

// query_balance(addr, denom) returns an integer amount.
func (x *call) queryBalance(l *lua.State) int {
	req := types.BankBalanceQuery{
		Address: types.Addr(lua.CheckString(l, 1)),
		Denom:   lua.CheckString(l, 2),
	}
	b, err := x.deps.Querier.Query(req)
	if err != nil {
		return x.fail(l, err)
	}
	var res types.BalanceResponse
	if err := json.Unmarshal(b, &res); err != nil {
		return x.fail(l, err)
	}
	l.PushInteger(int(res.Amount.Amount))
	return 1
}

// query_smart(addr, msg) returns the decoded reply of the contract.
func (x *call) querySmart(l *lua.State) int {
	addr := lua.CheckString(l, 1)
	payload, err := encodeArg(l, 2)
	if err != nil {
		return x.fail(l, err)
	}
	b, err := x.deps.Querier.Query(types.WasmSmartQuery{ContractAddr: types.Addr(addr), Msg: payload})
	if err != nil {
		return x.fail(l, err)
	}
	v, err := decodeMsg(b)
	if err != nil {
		return x.fail(l, err)
	}
	pushValue(l, v)
	return 1
}

func checkAmount(l *lua.State, index int) uint64 {
	n := lua.CheckInteger(l, index)
	if n < 0 {
		lua.ArgumentError(l, index, "negative amount")
	}
	return uint64(n)
}

// encodeArg JSON encodes a table argument. Strings are taken as JSON as is.
func encodeArg(l *lua.State, index int) ([]byte, error) {
	if l.TypeOf(index) == lua.TypeString {
		s, _ := l.ToString(index)
		return []byte(s), nil
	}
	lua.CheckType(l, index, lua.TypeTable)
	return json.Marshal(toValue(l, index))
}

// subMsg wraps [msg] per the optional opts table at [index]:
// {id = n, reply_on = "never" | "success" | "error" | "always"}.
func subMsg(l *lua.State, index int, msg types.Msg) types.SubMsg {
	sub := types.NewSubMsg(msg)
	if l.IsNoneOrNil(index) {
		return sub
	}
	lua.CheckType(l, index, lua.TypeTable)

	l.Field(index, "id")
	if id, ok := l.ToInteger(-1); ok && id >= 0 {
		sub.ID = uint64(id)
	}
	l.Pop(1)

	l.Field(index, "reply_on")
	if l.TypeOf(-1) == lua.TypeString {
		mode, _ := l.ToString(-1)
		on, ok := replyModes[mode]
		if !ok {
			lua.ArgumentError(l, index, fmt.Sprintf("unknown reply_on %q", mode))
		}
		sub.ReplyOn = on
	}
	l.Pop(1)
	return sub
}

// fundsOpt reads opts.funds at [index] as a {denom = amount} table.
func fundsOpt(l *lua.State, index int) (types.Coins, error) {
	if l.TypeOf(index) != lua.TypeTable {
		return nil, nil
	}
	l.Field(index, "funds")
	defer l.Pop(1)
	if l.TypeOf(-1) != lua.TypeTable {
		return nil, nil
	}
	raw, _ := toValue(l, -1).(map[string]interface{})
	coins := make([]types.Coin, 0, len(raw))
	for denom, v := range raw {
		n, ok := v.(int64)
		if !ok || n < 0 {
			return nil, types.Validationf("invalid amount of %s", denom)
		}
		coins = append(coins, types.NewCoin(uint64(n), denom))
	}
	return types.Normalize(coins)
}
