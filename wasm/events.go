// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wasm

import (
	"strconv"
	"strings"

	"github.com/ava-labs/multitest/types"
)

// Event types and attribute keys emitted by the wasm module.
const (
	EventInstantiate = "instantiate"
	EventExecute     = "execute"
	EventMigrate     = "migrate"
	EventSudo        = "sudo"
	EventReply       = "reply"
	EventWasm        = "wasm"

	CustomEventPrefix = "wasm-"

	AttrContractAddr = "_contract_address"
	AttrCodeID       = "code_id"
	AttrMode         = "mode"

	ReplyModeSuccess = "handle_success"
	ReplyModeFailure = "handle_failure"

	reservedPrefix = "_"
	minEventType   = 2
)

func actionEvent(typ string, contract types.Addr) types.Event {
	return types.NewEvent(typ).Add(AttrContractAddr, string(contract))
}

func instantiateEvent(contract types.Addr, codeID uint64) types.Event {
	return actionEvent(EventInstantiate, contract).Add(AttrCodeID, strconv.FormatUint(codeID, 10))
}

func migrateEvent(contract types.Addr, codeID uint64) types.Event {
	return actionEvent(EventMigrate, contract).Add(AttrCodeID, strconv.FormatUint(codeID, 10))
}

func replyEvent(contract types.Addr, reply types.Reply) types.Event {
	mode := ReplyModeSuccess
	if !reply.Result.IsOk() {
		mode = ReplyModeFailure
	}
	return actionEvent(EventReply, contract).Add(AttrMode, mode)
}

// contractEvents turns what a contract returned into events tagged with its
// address: [action] first, then its attributes as a wasm event, then each of
// its custom events as wasm-<type>.
func contractEvents(action types.Event, contract types.Addr, res types.Response) ([]types.Event, error) {
	events := []types.Event{action}

	if len(res.Attributes) > 0 {
		ev := types.NewEvent(EventWasm).Add(AttrContractAddr, string(contract))
		for _, a := range res.Attributes {
			if err := checkKey(a.Key); err != nil {
				return nil, err
			}
			ev = ev.Add(a.Key, a.Value)
		}
		events = append(events, ev)
	}

	for _, e := range res.Events {
		if len(strings.TrimSpace(e.Type)) < minEventType {
			return nil, types.Validationf("event type %q is too short", e.Type)
		}
		ev := types.NewEvent(CustomEventPrefix+e.Type).Add(AttrContractAddr, string(contract))
		for _, a := range e.Attributes {
			if err := checkKey(a.Key); err != nil {
				return nil, err
			}
			ev = ev.Add(a.Key, a.Value)
		}
		events = append(events, ev)
	}
	return events, nil
}

func checkKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return types.Validationf("empty attribute key")
	case strings.HasPrefix(key, reservedPrefix):
		return types.Validationf("attribute key %q is reserved", key)
	}
	return nil
}
