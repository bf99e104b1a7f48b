// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine resolves the submessages a contract emits: it runs each one
// in its own overlay scope, decides from the reply policy whether the issuing
// contract is called back, and merges events and data in call order.
package engine

import (
	"fmt"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/multitest/module"
	"github.com/ava-labs/multitest/storage"
	"github.com/ava-labs/multitest/types"
)

// Replier delivers the outcome of a submessage to the reply entry point of
// the contract that issued it. The returned response has its own
// submessages resolved already.
type Replier interface {
	Reply(
		store database.Database,
		router module.Router,
		block types.BlockInfo,
		contract types.Addr,
		reply types.Reply,
	) (types.AppResponse, error)
}

// FrameReply is the kind of the call stack frame a reply runs in.
const FrameReply = "reply"

var discard = newDiscardLogger()

func newDiscardLogger() log.Logger {
	l := log.New("module", "engine")
	l.SetHandler(log.DiscardHandler())
	return l
}

// Call is the state a contract call resolves its submessages against.
type Call struct {
	Store    database.Database
	Router   module.Router
	Block    types.BlockInfo
	Contract types.Addr
	// Family owns [Contract] and is recorded on the reply frames.
	Family  types.Family
	Replier Replier
	// Log defaults to a logger that discards everything.
	Log log.Logger
}

// Resolve runs [msgs] in order on behalf of c.Contract.
//
// The aggregated events are [events] followed, for each submessage, by the
// submessage's own events and then the events of its reply, if any. [data]
// is replaced by any reply that returns data.
//
// A submessage failure without a reply aborts the remaining submessages and
// is returned. A failure that a successful reply absorbs is not.
func Resolve(c Call, events []types.Event, data []byte, msgs []types.SubMsg) (types.AppResponse, error) {
	res := types.AppResponse{
		Events: append([]types.Event(nil), events...),
		Data:   data,
	}
	for _, msg := range msgs {
		sub, err := c.runSubMsg(msg)
		if err != nil {
			return types.AppResponse{}, err
		}
		res.Events = append(res.Events, sub.Events...)
		if sub.Data != nil {
			res.Data = sub.Data
		}
	}
	return res, nil
}

// runSubMsg executes one submessage inside its own scope over c.Store. The
// scope is committed only when the submessage, and its reply if one is
// triggered, succeed as a whole.
func (c Call) runSubMsg(msg types.SubMsg) (types.AppResponse, error) {
	scope := storage.NewOverlay(c.Store)
	defer scope.Discard()

	res, subErr := c.execute(scope, msg)

	if !msg.ReplyOn.Triggers(subErr == nil) {
		if subErr != nil {
			return types.AppResponse{}, fmt.Errorf("submessage %d: %w", msg.ID, subErr)
		}
		if err := scope.Commit(); err != nil {
			return types.AppResponse{}, err
		}
		// data of a submessage only surfaces through a reply
		return types.AppResponse{Events: res.Events}, nil
	}

	reply := types.Reply{ID: msg.ID}
	if subErr == nil {
		reply.Result.Ok = &types.SubMsgResponse{Events: res.Events, Data: res.Data}
	} else {
		reply.Result.Err = subErr.Error()
		c.logger().Debug("submessage failed, delivering to reply", "contract", c.Contract, "id", msg.ID, "err", subErr)
	}

	replyRes, err := c.reply(scope, reply)
	if err != nil {
		return types.AppResponse{}, types.NewReplyError(msg.ID, err)
	}
	if err := scope.Commit(); err != nil {
		return types.AppResponse{}, err
	}

	var out types.AppResponse
	if subErr == nil {
		out.Events = append(out.Events, res.Events...)
	}
	out.Events = append(out.Events, replyRes.Events...)
	out.Data = replyRes.Data
	return out, nil
}

// execute runs the wrapped operation in a child of [scope], committing it
// into [scope] only on success.
func (c Call) execute(scope *storage.Overlay, msg types.SubMsg) (types.AppResponse, error) {
	child := storage.NewOverlay(scope)
	defer child.Discard()

	res, err := c.Router.Execute(child, c.Block, c.Contract, msg.Msg)
	if err != nil {
		return types.AppResponse{}, err
	}
	if err := child.Commit(); err != nil {
		return types.AppResponse{}, err
	}
	return res, nil
}

// reply calls back c.Contract in a child of [scope]. A failed submessage
// left nothing in [scope], so the reply only sees the failure reason. The
// reply runs in its own call stack frame.
func (c Call) reply(scope *storage.Overlay, reply types.Reply) (types.AppResponse, error) {
	leave, err := c.Router.Enter(FrameReply, c.Family)
	if err != nil {
		return types.AppResponse{}, err
	}
	defer leave()

	child := storage.NewOverlay(scope)
	defer child.Discard()

	res, err := c.Replier.Reply(child, c.Router, c.Block, c.Contract, reply)
	if err != nil {
		return types.AppResponse{}, err
	}
	if err := child.Commit(); err != nil {
		return types.AppResponse{}, err
	}
	return res, nil
}

func (c Call) logger() log.Logger {
	if c.Log == nil {
		return discard
	}
	return c.Log
}
