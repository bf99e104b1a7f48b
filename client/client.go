// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package client is a JSON-RPC client for the multitest service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2/json2"

	"github.com/ava-labs/avalanchego/utils/formatting"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/multitest/multitest"
	"github.com/ava-labs/multitest/types"
)

// Client defines multitest client operations.
type Client interface {
	// GetBlock returns the current block
	GetBlock(ctx context.Context) (types.BlockInfo, error)
	// NextBlock advances one block and returns it
	NextBlock(ctx context.Context) (types.BlockInfo, error)

	GetBalance(ctx context.Context, addr types.Addr, denom string) (types.Coin, error)
	GetAllBalances(ctx context.Context, addr types.Addr) (types.Coins, error)
	GetSupply(ctx context.Context, denom string) (types.Coin, error)
	GetContractInfo(ctx context.Context, addr types.Addr) (types.ContractInfoResponse, error)

	// QuerySmart runs a contract query with the JSON encoding of [msg]
	QuerySmart(ctx context.Context, addr types.Addr, msg interface{}) ([]byte, error)
	// QueryRaw reads a key of a contract's storage
	QueryRaw(ctx context.Context, addr types.Addr, key []byte) ([]byte, error)

	Send(ctx context.Context, from, to types.Addr, amount types.Coins) (types.AppResponse, error)
	Instantiate(ctx context.Context, sender types.Addr, codeID uint64, msg interface{}, funds types.Coins, label string, admin types.Addr) (types.Addr, types.AppResponse, error)
	Execute(ctx context.Context, sender, contract types.Addr, msg interface{}, funds types.Coins) (types.AppResponse, error)

	// ParseCoins normalizes a list such as "10utok,3uatom" on the server
	ParseCoins(ctx context.Context, coins string) (types.Coins, error)
}

// New creates a new client object for the service at [uri].
func New(uri string) Client {
	return &client{uri: uri, http: http.DefaultClient}
}

type client struct {
	uri  string
	http *http.Client
}

func (cli *client) send(ctx context.Context, method string, args, reply interface{}) error {
	body, err := json2.EncodeClientRequest(multitest.Name+"."+method, args)
	if err != nil {
		return fmt.Errorf("couldn't encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cli.uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cli.http.Do(req)
	if err != nil {
		return fmt.Errorf("couldn't issue request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received status code %d", resp.StatusCode)
	}
	return json2.DecodeClientResponse(resp.Body, reply)
}

func (cli *client) GetBlock(ctx context.Context) (types.BlockInfo, error) {
	resp := new(multitest.BlockReply)
	if err := cli.send(ctx, "getBlock", &struct{}{}, resp); err != nil {
		return types.BlockInfo{}, err
	}
	return blockInfo(resp), nil
}

func (cli *client) NextBlock(ctx context.Context) (types.BlockInfo, error) {
	resp := new(multitest.BlockReply)
	if err := cli.send(ctx, "nextBlock", &struct{}{}, resp); err != nil {
		return types.BlockInfo{}, err
	}
	return blockInfo(resp), nil
}

func (cli *client) GetBalance(ctx context.Context, addr types.Addr, denom string) (types.Coin, error) {
	resp := new(multitest.CoinReply)
	err := cli.send(ctx, "getBalance", &multitest.BalanceArgs{Address: string(addr), Denom: denom}, resp)
	if err != nil {
		return types.Coin{}, err
	}
	return types.NewCoin(uint64(resp.Amount), resp.Denom), nil
}

func (cli *client) GetAllBalances(ctx context.Context, addr types.Addr) (types.Coins, error) {
	resp := new(multitest.AllBalancesReply)
	if err := cli.send(ctx, "getAllBalances", &multitest.AddressArgs{Address: string(addr)}, resp); err != nil {
		return nil, err
	}
	coins := make([]types.Coin, len(resp.Balances))
	for i, c := range resp.Balances {
		coins[i] = types.NewCoin(uint64(c.Amount), c.Denom)
	}
	return types.Normalize(coins)
}

func (cli *client) GetSupply(ctx context.Context, denom string) (types.Coin, error) {
	resp := new(multitest.CoinReply)
	if err := cli.send(ctx, "getSupply", &multitest.SupplyArgs{Denom: denom}, resp); err != nil {
		return types.Coin{}, err
	}
	return types.NewCoin(uint64(resp.Amount), resp.Denom), nil
}

func (cli *client) GetContractInfo(ctx context.Context, addr types.Addr) (types.ContractInfoResponse, error) {
	resp := new(multitest.ContractInfoReply)
	if err := cli.send(ctx, "getContractInfo", &multitest.AddressArgs{Address: string(addr)}, resp); err != nil {
		return types.ContractInfoResponse{}, err
	}
	return types.ContractInfoResponse{
		CodeID:  uint64(resp.CodeID),
		Creator: types.Addr(resp.Creator),
		Admin:   types.Addr(resp.Admin),
		Label:   resp.Label,
		Created: uint64(resp.Created),
	}, nil
}

func (cli *client) QuerySmart(ctx context.Context, addr types.Addr, msg interface{}) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	resp := new(multitest.DataReply)
	err = cli.send(ctx, "querySmart", &multitest.QuerySmartArgs{Address: string(addr), Msg: b}, resp)
	if err != nil {
		return nil, err
	}
	return decodeData(resp.Encoding, resp.Data)
}

func (cli *client) QueryRaw(ctx context.Context, addr types.Addr, key []byte) ([]byte, error) {
	k, err := formatting.EncodeWithChecksum(formatting.Hex, key)
	if err != nil {
		return nil, err
	}
	resp := new(multitest.DataReply)
	if err := cli.send(ctx, "queryRaw", &multitest.QueryRawArgs{Address: string(addr), Key: k}, resp); err != nil {
		return nil, err
	}
	return decodeData(resp.Encoding, resp.Data)
}

func (cli *client) Send(ctx context.Context, from, to types.Addr, amount types.Coins) (types.AppResponse, error) {
	resp := new(multitest.TxReply)
	err := cli.send(ctx, "send", &multitest.SendArgs{
		From:   string(from),
		To:     string(to),
		Amount: amount.String(),
	}, resp)
	if err != nil {
		return types.AppResponse{}, err
	}
	return appResponse(resp)
}

func (cli *client) Instantiate(
	ctx context.Context,
	sender types.Addr,
	codeID uint64,
	msg interface{},
	funds types.Coins,
	label string,
	admin types.Addr,
) (types.Addr, types.AppResponse, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return "", types.AppResponse{}, err
	}
	resp := new(multitest.InstantiateReply)
	err = cli.send(ctx, "instantiate", &multitest.InstantiateArgs{
		Sender: string(sender),
		CodeID: cjson.Uint64(codeID),
		Msg:    b,
		Funds:  funds.String(),
		Label:  label,
		Admin:  string(admin),
	}, resp)
	if err != nil {
		return "", types.AppResponse{}, err
	}
	res, err := appResponse(&resp.TxReply)
	return types.Addr(resp.Address), res, err
}

func (cli *client) Execute(ctx context.Context, sender, contract types.Addr, msg interface{}, funds types.Coins) (types.AppResponse, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return types.AppResponse{}, err
	}
	resp := new(multitest.TxReply)
	err = cli.send(ctx, "execute", &multitest.ExecuteArgs{
		Sender:  string(sender),
		Address: string(contract),
		Msg:     b,
		Funds:   funds.String(),
	}, resp)
	if err != nil {
		return types.AppResponse{}, err
	}
	return appResponse(resp)
}

func (cli *client) ParseCoins(ctx context.Context, coins string) (types.Coins, error) {
	resp := new(multitest.ParseCoinsReply)
	if err := cli.send(ctx, "parseCoins", &multitest.ParseCoinsArgs{Coins: coins}, resp); err != nil {
		return nil, err
	}
	parsed := make(types.Coins, len(resp.Coins))
	for i, c := range resp.Coins {
		parsed[i] = types.Coin{Denom: c.Denom, Amount: uint64(c.Amount)}
	}
	return parsed, nil
}

func blockInfo(resp *multitest.BlockReply) types.BlockInfo {
	return types.BlockInfo{Height: uint64(resp.Height), Time: resp.Time, ChainID: resp.ChainID}
}

func appResponse(resp *multitest.TxReply) (types.AppResponse, error) {
	data, err := decodeData(resp.Encoding, resp.Data)
	if err != nil {
		return types.AppResponse{}, err
	}
	return types.AppResponse{Events: resp.Events, Data: data}, nil
}

func decodeData(encoding formatting.Encoding, data string) ([]byte, error) {
	b, err := formatting.Decode(encoding, data)
	if err != nil {
		return nil, fmt.Errorf("couldn't decode data: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	return b, nil
}
