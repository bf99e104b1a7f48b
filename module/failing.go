// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package module

import (
	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/multitest/types"
)

var _ Module = FailingModule{}

// FailingModule rejects every call. It stands in for families that exist in
// the message set but have no implementation.
type FailingModule struct {
	Family types.Family
}

func (f FailingModule) Execute(_ database.Database, _ Router, _ types.BlockInfo, sender types.Addr, msg types.Msg) (types.AppResponse, error) {
	return types.AppResponse{}, types.Executionf("%s module cannot execute %T from %s", f.name(), msg, sender)
}

func (f FailingModule) Query(_ database.Database, _ Querier, _ types.BlockInfo, req types.QueryRequest) ([]byte, error) {
	return nil, types.Executionf("%s module cannot answer %T", f.name(), req)
}

func (f FailingModule) Sudo(_ database.Database, _ Router, _ types.BlockInfo, msg types.SudoMsg) (types.AppResponse, error) {
	return types.AppResponse{}, types.Executionf("%s module cannot sudo %T", f.name(), msg)
}

func (f FailingModule) name() string {
	if f.Family == "" {
		return "unsupported"
	}
	return string(f.Family)
}
