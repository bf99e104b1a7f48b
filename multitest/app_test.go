// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multitest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/multitest/bank"
	"github.com/ava-labs/multitest/module"
	"github.com/ava-labs/multitest/types"
	"github.com/ava-labs/multitest/wasm"
)

func TestNewDefaults(t *testing.T) {
	require := require.New(t)

	app, err := New()
	require.NoError(err)

	b := app.Block()
	require.Equal(uint64(DefaultHeight), b.Height)
	require.Equal(DefaultChainID, b.ChainID)
	require.True(DefaultTime.Equal(b.Time))

	_, err = app.Execute(alice, types.CustomMsg{Payload: []byte("x")})
	require.ErrorIs(err, types.ErrExecution)

	_, err = New(WithMaxCallDepth(0))
	require.Error(err)

	_, err = New(WithGenesis(Balance{Address: "NO", Coins: coins(1)}))
	require.ErrorIs(err, types.ErrValidation)
}

func TestAppsAreIsolated(t *testing.T) {
	require := require.New(t)

	first, _, addr := setup(t, 0)
	second, err := New()
	require.NoError(err)

	_, err = second.QueryContractInfo(addr)
	require.ErrorIs(err, types.ErrValidation)
	require.Zero(second.Wasm().CodeCount())
	require.Equal(1, first.Wasm().CodeCount())
}

// Scenario A: a plain transfer to a contract.
func TestTransferToContract(t *testing.T) {
	require := require.New(t)

	app, _, c := setup(t, 0)

	res, err := app.Send(alice, c, coins(10))
	require.NoError(err)
	require.Equal(uint64(10), balanceOf(t, app, c))
	require.Equal(uint64(990), balanceOf(t, app, alice))
	require.Equal([]string{"transfer[recipient=contract1,sender=alice,amount=10utok]"}, trace(res.Events))
}

// Scenario B: a contract pays out through a submessage without reply.
func TestContractPaysOut(t *testing.T) {
	require := require.New(t)

	app, _, c := setup(t, 10)

	res, err := app.ExecuteContract(alice, c, harnessMsg{Pay: &payMsg{To: dave, Amount: 10}}, nil)
	require.NoError(err)
	require.Equal(uint64(10), balanceOf(t, app, dave))
	require.Zero(balanceOf(t, app, c))
	require.Equal([]string{
		"execute[_contract_address=contract1]",
		"wasm[_contract_address=contract1,action=pay]",
		"transfer[recipient=dave,sender=contract1,amount=10utok]",
	}, trace(res.Events))
}

// Scenario C: a failing submessage absorbed by a reply, followed by one that
// succeeds.
func TestReplyAbsorbsFailedSubMessage(t *testing.T) {
	require := require.New(t)

	app, rec, c := setup(t, 10)

	res, err := app.ExecuteContract(alice, c, harnessMsg{Split: &splitMsg{
		First:         payMsg{To: dave, Amount: 1_000},
		Second:        payMsg{To: bob, Amount: 4},
		SecondReplyOn: types.ReplyAlways,
	}}, nil)
	require.NoError(err)

	require.Len(rec.replies, 2)
	require.Equal(uint64(1), rec.replies[0].ID)
	require.False(rec.replies[0].Result.IsOk())
	require.Contains(rec.replies[0].Result.Err, "insufficient funds")
	require.Equal(uint64(2), rec.replies[1].ID)
	require.True(rec.replies[1].Result.IsOk())

	// the first payment is gone, the second and both replies stay
	require.Zero(balanceOf(t, app, dave))
	require.Equal(uint64(4), balanceOf(t, app, bob))
	require.Equal(uint64(6), balanceOf(t, app, c))
	for _, key := range []string{"replied-1", "replied-2"} {
		v, err := app.QueryWasmRaw(c, []byte(key))
		require.NoError(err)
		require.Equal([]byte{1}, v)
	}

	require.Equal([]string{
		"execute[_contract_address=contract1]",
		"wasm[_contract_address=contract1,action=split]",
		"reply[_contract_address=contract1,mode=handle_failure]",
		"wasm[_contract_address=contract1,replied=1]",
		"transfer[recipient=bob,sender=contract1,amount=4utok]",
		"reply[_contract_address=contract1,mode=handle_success]",
		"wasm[_contract_address=contract1,replied=2]",
	}, trace(res.Events))
	require.Equal([]byte("reply-2"), res.Data)
}

func TestReplyInvokedOnlyForFailure(t *testing.T) {
	require := require.New(t)

	app, rec, c := setup(t, 10)

	res, err := app.ExecuteContract(alice, c, harnessMsg{Split: &splitMsg{
		First:         payMsg{To: dave, Amount: 1_000},
		Second:        payMsg{To: bob, Amount: 4},
		SecondReplyOn: types.ReplyNever,
	}}, nil)
	require.NoError(err)

	require.Len(rec.replies, 1)
	require.Equal(uint64(1), rec.replies[0].ID)
	require.Equal(uint64(4), balanceOf(t, app, bob))
	require.Equal([]byte("reply-1"), res.Data)
}

func TestFailingReplyRollsBackEverything(t *testing.T) {
	require := require.New(t)

	app, rec, c := setup(t, 10)
	before := dump(t, app)

	_, err := app.ExecuteContract(alice, c, harnessMsg{Split: &splitMsg{
		First:         payMsg{To: dave, Amount: 1_000},
		Second:        payMsg{To: bob, Amount: 4},
		SecondReplyOn: types.ReplyAlways,
		FailReply:     true,
	}}, nil)
	require.ErrorIs(err, types.ErrReply)
	require.Len(rec.replies, 1)

	require.Equal(before, dump(t, app))
	require.Zero(balanceOf(t, app, bob))
	require.Equal(uint64(10), balanceOf(t, app, c))
}

// Scenario D: two contracts calling each other past the depth limit.
func TestMutualRecursionHitsLimit(t *testing.T) {
	require := require.New(t)

	app, rec, a := setup(t, 50, WithMaxCallDepth(16))
	codeID := uint64(1)
	b, err := app.InstantiateContract(codeID, alice, struct{}{}, coins(50), "peer", "")
	require.NoError(err)
	require.Empty(rec.replies)

	before := dump(t, app)

	_, err = app.ExecuteContract(alice, a, harnessMsg{Bounce: &bounceMsg{Peer: b}}, nil)
	require.ErrorIs(err, types.ErrRecursionLimit)

	require.Equal(before, dump(t, app))
	require.Equal(uint64(50), balanceOf(t, app, a))
	require.Equal(uint64(50), balanceOf(t, app, b))
	require.Equal(uint64(900), balanceOf(t, app, alice))
	require.Zero(app.Router().Depth())
}

// burnLoop issues a burn it cannot afford and asks to hear about the
// failure, from execute and from every reply, so each reply starts another
// round.
func burnLoop(replies *int) wasm.Contract {
	burn := func() types.Response {
		return types.NewResponse().AddSubMessage(types.ReplyOnError(1, types.BankBurn{Amount: coins(1)}))
	}
	execute := func(wasm.Deps, types.Env, types.MessageInfo, []byte) (types.Response, error) {
		return burn(), nil
	}
	instantiate := func(wasm.Deps, types.Env, types.MessageInfo, []byte) (types.Response, error) {
		return types.NewResponse(), nil
	}
	reply := func(deps wasm.Deps, _ types.Env, _ types.Reply) (types.Response, error) {
		*replies++
		if err := deps.Storage.Put([]byte("replied"), []byte{1}); err != nil {
			return types.Response{}, err
		}
		return burn(), nil
	}
	return wasm.NewContractWrapper(execute, instantiate, nil).WithReply(reply)
}

func TestReplyChainHitsLimit(t *testing.T) {
	require := require.New(t)

	const maxDepth = 8
	app, err := New(
		WithMaxCallDepth(maxDepth),
		WithGenesis(Balance{Address: alice, Coins: coins(1_000)}),
	)
	require.NoError(err)

	var replies int
	codeID, err := app.StoreCode(burnLoop(&replies))
	require.NoError(err)
	c, err := app.InstantiateContract(codeID, alice, struct{}{}, nil, "burner", "")
	require.NoError(err)

	before := dump(t, app)

	_, err = app.ExecuteContract(alice, c, struct{}{}, nil)
	require.ErrorIs(err, types.ErrRecursionLimit)
	require.ErrorIs(err, types.ErrReply)

	// execute holds the first frame, reply n runs at depth n+1
	require.Equal(maxDepth-1, replies)
	require.Equal(before, dump(t, app))
	require.Zero(app.Router().Depth())
}

func TestAtomicity(t *testing.T) {
	app, _, c := setup(t, 10)

	failing := []struct {
		name string
		msg  types.Msg
		kind error
	}{
		{name: "insufficient funds", msg: send(bob, 5_000), kind: types.ErrValidation},
		{name: "bad recipient", msg: send("X", 1), kind: types.ErrValidation},
		{name: "unknown contract", msg: types.WasmExecute{ContractAddr: "contract9", Msg: []byte(`{}`)}, kind: types.ErrValidation},
		{name: "unrouted family", msg: types.CustomMsg{Module: "staking"}, kind: types.ErrRouting},
		{name: "contract error", msg: types.WasmExecute{ContractAddr: c, Msg: []byte(`{}`), Funds: coins(3)}, kind: types.ErrExecution},
		{name: "failing submessage", msg: types.WasmExecute{ContractAddr: c, Msg: []byte(`{"pay":{"to":"dave","amount":11}}`)}, kind: types.ErrValidation},
	}
	for _, tt := range failing {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			before := dump(t, app)
			_, err := app.Execute(alice, tt.msg)
			require.ErrorIs(err, tt.kind)
			require.Equal(before, dump(t, app))
		})
	}
}

func TestCommitTouchesOnlyWrittenKeys(t *testing.T) {
	require := require.New(t)

	app, _, _ := setup(t, 0)
	require.NoError(app.InitBalance(dave, coins(1)))

	before := dump(t, app)
	_, err := app.Send(alice, bob, coins(7))
	require.NoError(err)
	after := dump(t, app)

	old := make(map[string]string, len(before))
	for _, kv := range before {
		old[string(kv.Key)] = string(kv.Value)
	}
	var changed, added int
	for _, kv := range after {
		v, ok := old[string(kv.Key)]
		switch {
		case !ok:
			added++
		case v != string(kv.Value):
			changed++
		}
		delete(old, string(kv.Key))
	}
	require.Empty(old)
	require.Equal(1, changed) // alice
	require.Equal(1, added)   // bob
	require.Equal(uint64(1), balanceOf(t, app, dave))
}

func TestExecuteMultipleIsAllOrNothing(t *testing.T) {
	require := require.New(t)

	app, _, _ := setup(t, 0)
	before := dump(t, app)

	_, err := app.ExecuteMultiple(alice, send(bob, 1), send(dave, 1), send(bob, 10_000))
	require.ErrorIs(err, types.ErrValidation)
	require.Contains(err.Error(), "message 2")
	require.Equal(before, dump(t, app))

	res, err := app.ExecuteMultiple(alice, send(bob, 1), send(dave, 2))
	require.NoError(err)
	require.Len(res, 2)
	require.Equal(uint64(1), balanceOf(t, app, bob))
	require.Equal(uint64(2), balanceOf(t, app, dave))
}

func TestQueryIsolation(t *testing.T) {
	require := require.New(t)

	app, rec, c := setup(t, 5)

	_, err := app.ExecuteContract(alice, c, harnessMsg{Observe: &struct{}{}}, coins(3))
	require.NoError(err)

	require.Len(rec.observations, 1)
	obs := rec.observations[0]
	// the contract's own querier sees its pending write
	require.Equal("yes", obs.own)
	// the external entry point sees neither the write nor the incoming funds
	require.NoError(obs.external)
	require.Equal(uint64(5), obs.balance.Amount)

	var after pendingResponse
	require.NoError(app.QueryWasmSmart(c, struct{}{}, &after))
	require.Equal("yes", after.Pending)
	require.Equal(uint64(7), balanceOf(t, app, c))
}

func TestPrivilegedMessagesNeedSudo(t *testing.T) {
	require := require.New(t)

	app, _, c := setup(t, 0)

	_, err := app.Execute(alice, types.BankMint{ToAddress: alice, Amount: coins(5)})
	require.ErrorIs(err, types.ErrValidation)
	_, err = app.Execute(alice, types.WasmSudo{ContractAddr: c})
	require.ErrorIs(err, types.ErrValidation)

	_, err = app.Sudo(types.BankMint{ToAddress: bob, Amount: coins(5)})
	require.NoError(err)
	require.Equal(uint64(5), balanceOf(t, app, bob))

	supply, err := app.QuerySupply(denom)
	require.NoError(err)
	require.Equal(uint64(1_005), supply.Amount)

	// the harness has no sudo entry point
	_, err = app.WasmSudo(c, struct{}{})
	require.ErrorIs(err, types.ErrExecution)
}

func TestAdminRefusedDuringExecution(t *testing.T) {
	require := require.New(t)

	app, _, c := setup(t, 0)
	before := app.Wasm().CodeCount()

	_, err := app.ExecuteContract(alice, c, harnessMsg{StoreCode: &struct{}{}}, nil)
	require.ErrorIs(err, types.ErrValidation)
	require.Contains(err.Error(), "already in flight")
	require.Equal(before, app.Wasm().CodeCount())

	// the lock was released
	_, err = app.StoreCode(harness(app, &recorder{}))
	require.NoError(err)
}

func TestBlockControls(t *testing.T) {
	require := require.New(t)

	app, err := New(WithBlock(types.BlockInfo{Height: 1, Time: time.Unix(100, 0), ChainID: "a"}), WithChainID("b"))
	require.NoError(err)
	require.Equal("b", app.Block().ChainID)

	require.NoError(app.NextBlock())
	require.Equal(uint64(2), app.Block().Height)
	require.Equal(time.Unix(105, 0), app.Block().Time)

	require.NoError(app.UpdateBlock(func(b *types.BlockInfo) { b.Height += 10 }))
	require.Equal(uint64(12), app.Block().Height)

	require.NoError(app.SetBlock(types.BlockInfo{Height: 99, ChainID: "c"}))
	require.Equal(types.BlockInfo{Height: 99, ChainID: "c"}, app.Block())
}

func TestContractLifecycle(t *testing.T) {
	require := require.New(t)

	app, rec, c := setup(t, 0)

	info, err := app.QueryContractInfo(c)
	require.NoError(err)
	require.Equal(types.ContractInfoResponse{
		CodeID:  1,
		Creator: alice,
		Admin:   alice,
		Label:   "harness",
		Created: DefaultHeight,
	}, info)

	code, err := app.QueryCodeInfo(1)
	require.NoError(err)
	require.Equal(types.Addr("creator"), code.Creator)

	v2, err := app.StoreCodeWithCreator(bob, wasm.NewContractWrapper(nil, nil, nil).WithMigrate(
		func(wasm.Deps, types.Env, []byte) (types.Response, error) {
			return types.NewResponse().AddAttribute("migrated", "true"), nil
		},
	))
	require.NoError(err)

	_, err = app.MigrateContract(bob, c, v2, struct{}{})
	require.ErrorIs(err, types.ErrValidation)

	res, err := app.MigrateContract(alice, c, v2, struct{}{})
	require.NoError(err)
	require.Equal([]string{
		"migrate[_contract_address=contract1,code_id=2]",
		"wasm[_contract_address=contract1,migrated=true]",
	}, trace(res.Events))
	require.Empty(rec.replies)

	info, err = app.QueryContractInfo(c)
	require.NoError(err)
	require.Equal(v2, info.CodeID)
}

func TestCustomModule(t *testing.T) {
	require := require.New(t)

	app, err := New(
		WithModule(types.FamilyCustom, bank.New(nil)),
		WithApi(module.MockApi{}),
	)
	require.NoError(err)

	// the bank keeper does not understand custom messages
	_, err = app.Execute(alice, types.CustomMsg{Payload: []byte("x")})
	require.ErrorIs(err, types.ErrValidation)
}
