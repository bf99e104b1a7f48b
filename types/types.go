// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types defines the data model shared by the router, the execution
// engine and every module: addresses, coins, operations, queries, responses
// and the error taxonomy.
package types

import (
	"time"
)

// Addr is a validated, human readable account or contract address.
// Validation and canonicalization are done by a module.Api.
type Addr string

func (a Addr) String() string { return string(a) }

// BlockInfo is the block context an execution runs in. It is only changed
// between top-level executions.
type BlockInfo struct {
	Height  uint64    `json:"height"`
	Time    time.Time `json:"time"`
	ChainID string    `json:"chain_id"`
}

// BlockTime is the time a block is assumed to take.
const BlockTime = 5 * time.Second

// Next returns the block following [b].
func (b BlockInfo) Next() BlockInfo {
	return BlockInfo{
		Height:  b.Height + 1,
		Time:    b.Time.Add(BlockTime),
		ChainID: b.ChainID,
	}
}

// Env is the environment handed to a contract entry point.
type Env struct {
	Block    BlockInfo
	Contract Addr
}

// MessageInfo describes who called a contract and what they sent along.
type MessageInfo struct {
	Sender Addr
	Funds  Coins
}
