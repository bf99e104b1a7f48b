// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multitest

import (
	"time"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/multitest/module"
	"github.com/ava-labs/multitest/router"
	"github.com/ava-labs/multitest/types"
)

// Default block an App starts at.
const (
	DefaultChainID = "multitest-1"
	DefaultHeight  = 12_345
)

// DefaultTime is the time of the default block.
var DefaultTime = time.Unix(0, 1_571_797_419_879_305_533).UTC()

// Balance is an initial balance applied when an App is built.
type Balance struct {
	Address types.Addr  `json:"address"`
	Coins   types.Coins `json:"coins"`
}

// Config holds everything an App is built from.
type Config struct {
	Block        types.BlockInfo
	MaxCallDepth int
	Genesis      []Balance

	api     module.Api
	store   database.Database
	modules map[types.Family]module.Module
	log     log.Logger
}

// DefaultConfig returns the configuration New starts from.
func DefaultConfig() Config {
	return Config{
		Block: types.BlockInfo{
			Height:  DefaultHeight,
			Time:    DefaultTime,
			ChainID: DefaultChainID,
		},
		MaxCallDepth: router.DefaultMaxCallDepth,
		api:          module.MockApi{},
		modules:      make(map[types.Family]module.Module),
		log:          discardLogger(),
	}
}

// discardLogger is the logger of an App built without WithLogger.
func discardLogger() log.Logger {
	l := log.New("module", Name)
	l.SetHandler(log.DiscardHandler())
	return l
}

// Option configures an App.
type Option func(*Config)

// WithConfig replaces the exported fields of the configuration.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		cfg.Block = c.Block
		cfg.MaxCallDepth = c.MaxCallDepth
		cfg.Genesis = c.Genesis
	}
}

// WithBlock sets the block the App starts at.
func WithBlock(b types.BlockInfo) Option {
	return func(c *Config) { c.Block = b }
}

// WithChainID sets the chain id of the starting block.
func WithChainID(id string) Option {
	return func(c *Config) { c.Block.ChainID = id }
}

// WithMaxCallDepth bounds how deeply operations may nest.
func WithMaxCallDepth(depth int) Option {
	return func(c *Config) { c.MaxCallDepth = depth }
}

// WithLogger sets the logger every module logs through.
func WithLogger(l log.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithApi replaces the address Api.
func WithApi(api module.Api) Option {
	return func(c *Config) { c.api = api }
}

// WithModule registers [m] for [family] in place of the default module.
func WithModule(family types.Family, m module.Module) Option {
	return func(c *Config) { c.modules[family] = m }
}

// WithStore sets the root store. It defaults to an empty in-memory store.
func WithStore(db database.Database) Option {
	return func(c *Config) { c.store = db }
}

// WithGenesis seeds initial balances.
func WithGenesis(balances ...Balance) Option {
	return func(c *Config) { c.Genesis = append(c.Genesis, balances...) }
}
