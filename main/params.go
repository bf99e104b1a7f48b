// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/multitest/multitest"
	"github.com/ava-labs/multitest/router"
	"github.com/ava-labs/multitest/types"
)

const (
	versionKey      = "version"
	configKey       = "config"
	httpHostKey     = "http-host"
	httpPortKey     = "http-port"
	logLevelKey     = "log-level"
	chainIDKey      = "chain-id"
	maxCallDepthKey = "max-call-depth"
	contractsKey    = "contracts"
	genesisKey      = "genesis.balances"
)

// params is the configuration of the binary.
type params struct {
	version      bool
	httpHost     string
	httpPort     uint16
	logLevel     log.Lvl
	chainID      string
	maxCallDepth int
	contracts    []string
	genesis      []multitest.Balance
}

// genesisBalance is a balance as written in the config file.
type genesisBalance struct {
	Address string `mapstructure:"address"`
	Coins   string `mapstructure:"coins"`
}

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet(multitest.Name, flag.ContinueOnError)

	fs.Bool(versionKey, false, "If true, prints the version and quits")
	fs.String(configKey, "", "YAML config file")
	fs.String(httpHostKey, "127.0.0.1", "Address the JSON-RPC server listens on")
	fs.Uint(httpPortKey, 9650, "Port the JSON-RPC server listens on")
	fs.String(logLevelKey, "info", "Log level")
	fs.String(chainIDKey, multitest.DefaultChainID, "Chain id of the starting block")
	fs.Int(maxCallDepthKey, router.DefaultMaxCallDepth, "Maximum depth of nested dispatches")
	fs.String(contractsKey, "", "Space separated Lua contract files to store at startup")

	return fs
}

// getViper returns the viper environment for [args], merged with the config
// file when one is given.
func getViper(args []string) (*viper.Viper, error) {
	v := viper.New()

	fs := pflag.NewFlagSet(multitest.Name, pflag.ContinueOnError)
	fs.AddGoFlagSet(buildFlagSet())
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if path := v.GetString(configKey); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("couldn't read %s: %w", path, err)
		}
	}
	return v, nil
}

func getParams(args []string) (*params, error) {
	v, err := getViper(args)
	if err != nil {
		return nil, err
	}

	lvl, err := log.LvlFromString(v.GetString(logLevelKey))
	if err != nil {
		return nil, err
	}
	port := v.GetUint(httpPortKey)
	if port > 1<<16-1 {
		return nil, fmt.Errorf("invalid %s %d", httpPortKey, port)
	}

	p := &params{
		version:      v.GetBool(versionKey),
		httpHost:     v.GetString(httpHostKey),
		httpPort:     uint16(port),
		logLevel:     lvl,
		chainID:      v.GetString(chainIDKey),
		maxCallDepth: v.GetInt(maxCallDepthKey),
		contracts:    v.GetStringSlice(contractsKey),
	}

	var balances []genesisBalance
	if err := v.UnmarshalKey(genesisKey, &balances); err != nil {
		return nil, fmt.Errorf("couldn't parse %s: %w", genesisKey, err)
	}
	for _, b := range balances {
		coins, err := types.ParseCoins(b.Coins)
		if err != nil {
			return nil, fmt.Errorf("genesis balance of %q: %w", b.Address, err)
		}
		p.genesis = append(p.genesis, multitest.Balance{Address: types.Addr(b.Address), Coins: coins})
	}
	return p, nil
}
