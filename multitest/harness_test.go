// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/multitest/storage"
	"github.com/ava-labs/multitest/types"
	"github.com/ava-labs/multitest/wasm"
)

const (
	denom = "utok"

	alice types.Addr = "alice"
	bob   types.Addr = "bob"
	dave  types.Addr = "dave"
)

var (
	failReplyKey = []byte("fail_reply")
	pendingKey   = []byte("pending")
)

type payMsg struct {
	To     types.Addr `json:"to"`
	Amount uint64     `json:"amount"`
}

type splitMsg struct {
	// First is sent with ReplyError and Second with [SecondReplyOn]
	First         payMsg        `json:"first"`
	Second        payMsg        `json:"second"`
	SecondReplyOn types.ReplyOn `json:"second_reply_on"`
	FailReply     bool          `json:"fail_reply"`
}

type bounceMsg struct {
	Peer types.Addr `json:"peer"`
}

type harnessMsg struct {
	Pay       *payMsg    `json:"pay,omitempty"`
	Split     *splitMsg  `json:"split,omitempty"`
	Bounce    *bounceMsg `json:"bounce,omitempty"`
	Observe   *struct{}  `json:"observe,omitempty"`
	StoreCode *struct{}  `json:"store_code,omitempty"`
}

type pendingResponse struct {
	Pending string `json:"pending"`
}

type observation struct {
	own      string
	external error
	balance  types.Coin
}

// recorder collects what the harness contract saw.
type recorder struct {
	replies      []types.Reply
	observations []observation
}

func coins(amount uint64) types.Coins {
	return types.NewCoins(types.NewCoin(amount, denom))
}

func send(to types.Addr, amount uint64) types.BankSend {
	return types.BankSend{ToAddress: to, Amount: coins(amount)}
}

// harness is a contract driven by harnessMsg. It reaches back into [app]
// for the cases that need the external entry points.
func harness(app *App, rec *recorder) wasm.Contract {
	execute := func(deps wasm.Deps, env types.Env, _ types.MessageInfo, msg harnessMsg) (types.Response, error) {
		switch {
		case msg.Pay != nil:
			return types.NewResponse().
				AddAttribute("action", "pay").
				AddMessage(send(msg.Pay.To, msg.Pay.Amount)), nil

		case msg.Split != nil:
			if msg.Split.FailReply {
				if err := deps.Storage.Put(failReplyKey, []byte{1}); err != nil {
					return types.Response{}, err
				}
			}
			return types.NewResponse().
				AddAttribute("action", "split").
				AddSubMessage(types.ReplyOnError(1, send(msg.Split.First.To, msg.Split.First.Amount))).
				AddSubMessage(types.SubMsg{
					ID:      2,
					Msg:     send(msg.Split.Second.To, msg.Split.Second.Amount),
					ReplyOn: msg.Split.SecondReplyOn,
				}), nil

		case msg.Bounce != nil:
			next, err := types.NewWasmExecute(msg.Bounce.Peer, harnessMsg{Bounce: &bounceMsg{Peer: env.Contract}}, coins(1))
			if err != nil {
				return types.Response{}, err
			}
			return types.NewResponse().AddMessage(next), nil

		case msg.Observe != nil:
			if err := deps.Storage.Put(pendingKey, []byte("yes")); err != nil {
				return types.Response{}, err
			}
			q, err := types.NewWasmSmartQuery(env.Contract, struct{}{})
			if err != nil {
				return types.Response{}, err
			}
			raw, err := deps.Querier.Query(q)
			if err != nil {
				return types.Response{}, err
			}
			var own pendingResponse
			if err := json.Unmarshal(raw, &own); err != nil {
				return types.Response{}, err
			}
			var external pendingResponse
			extErr := app.QueryWasmSmart(env.Contract, struct{}{}, &external)
			if extErr == nil && external.Pending != "" {
				extErr = fmt.Errorf("external query saw %q", external.Pending)
			}
			balance, err := app.QueryBalance(env.Contract, denom)
			if err != nil {
				return types.Response{}, err
			}
			rec.observations = append(rec.observations, observation{own: own.Pending, external: extErr, balance: balance})
			return types.NewResponse().AddMessage(send(bob, 1)), nil

		case msg.StoreCode != nil:
			if _, err := app.StoreCode(harness(app, rec)); err != nil {
				return types.Response{}, err
			}
			return types.NewResponse(), nil
		}
		return types.Response{}, errors.New("unknown message")
	}

	instantiate := func(deps wasm.Deps, env types.Env, info types.MessageInfo, _ struct{}) (types.Response, error) {
		return types.NewResponse().AddAttribute("funded", info.Funds.String()), nil
	}

	query := func(deps wasm.Deps, _ types.Env, _ struct{}) (pendingResponse, error) {
		v, err := deps.Storage.Get(pendingKey)
		if err != nil {
			return pendingResponse{}, nil
		}
		return pendingResponse{Pending: string(v)}, nil
	}

	reply := func(deps wasm.Deps, _ types.Env, reply types.Reply) (types.Response, error) {
		rec.replies = append(rec.replies, reply)
		if err := deps.Storage.Put([]byte("replied-"+strconv.FormatUint(reply.ID, 10)), []byte{1}); err != nil {
			return types.Response{}, err
		}
		fail, err := deps.Storage.Has(failReplyKey)
		if err != nil {
			return types.Response{}, err
		}
		if fail {
			return types.Response{}, errors.New("reply refused")
		}
		return types.NewResponse().
			AddAttribute("replied", strconv.FormatUint(reply.ID, 10)).
			SetData([]byte(fmt.Sprintf("reply-%d", reply.ID))), nil
	}

	return wasm.NewContractWrapper(
		wasm.Typed(execute),
		wasm.Typed(instantiate),
		wasm.TypedQuery(query),
	).WithReply(reply)
}

// setup returns an App with [alice] funded and one harness contract
// holding [funded] coins.
func setup(t *testing.T, funded uint64, opts ...Option) (*App, *recorder, types.Addr) {
	t.Helper()
	require := require.New(t)

	opts = append([]Option{WithGenesis(Balance{Address: alice, Coins: coins(1_000)})}, opts...)
	app, err := New(opts...)
	require.NoError(err)

	rec := &recorder{}
	codeID, err := app.StoreCode(harness(app, rec))
	require.NoError(err)

	var funds types.Coins
	if funded > 0 {
		funds = coins(funded)
	}
	addr, err := app.InstantiateContract(codeID, alice, struct{}{}, funds, "harness", alice)
	require.NoError(err)
	return app, rec, addr
}

func balanceOf(t *testing.T, app *App, addr types.Addr) uint64 {
	t.Helper()
	c, err := app.QueryBalance(addr, denom)
	require.NoError(t, err)
	return c.Amount
}

func dump(t *testing.T, app *App) []storage.KeyValue {
	t.Helper()
	pairs, err := storage.Dump(app.root)
	require.NoError(t, err)
	return pairs
}

// trace renders events as type[key=value,...] for comparison.
func trace(events []types.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		s := e.Type + "["
		for j, a := range e.Attributes {
			if j > 0 {
				s += ","
			}
			s += a.Key + "=" + a.Value
		}
		out[i] = s + "]"
	}
	return out
}
