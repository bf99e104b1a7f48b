// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/rpc/v2"

	"github.com/ava-labs/avalanchego/utils/formatting"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/multitest/types"
)

// Service is the JSON-RPC API of an App
type Service struct {
	// serializes state-changing requests, which the App would otherwise
	// reject while another is in flight
	lock sync.Mutex
	app  *App
}

// NewService returns the API service for [app].
func NewService(app *App) *Service {
	return &Service{app: app}
}

// NewHandler returns an HTTP handler serving [app]'s API under the service
// name "multitest".
func NewHandler(app *App) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(cjson.NewCodec(), "application/json")
	server.RegisterCodec(cjson.NewCodec(), "application/json;charset=UTF-8")
	return server, server.RegisterService(NewService(app), Name)
}

// BlockReply is the reply from GetBlock and NextBlock
type BlockReply struct {
	Height  cjson.Uint64 `json:"height"`
	Time    time.Time    `json:"time"`
	ChainID string       `json:"chainID"`
}

func newBlockReply(b types.BlockInfo) BlockReply {
	return BlockReply{Height: cjson.Uint64(b.Height), Time: b.Time, ChainID: b.ChainID}
}

// GetBlock returns the current block
func (s *Service) GetBlock(_ *http.Request, _ *struct{}, reply *BlockReply) error {
	*reply = newBlockReply(s.app.Block())
	return nil
}

// NextBlock advances the App one block and returns the new one
func (s *Service) NextBlock(_ *http.Request, _ *struct{}, reply *BlockReply) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.app.NextBlock(); err != nil {
		return err
	}
	*reply = newBlockReply(s.app.Block())
	return nil
}

// BalanceArgs are the arguments to GetBalance
type BalanceArgs struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
}

// CoinReply is a single coin
type CoinReply struct {
	Denom  string       `json:"denom"`
	Amount cjson.Uint64 `json:"amount"`
}

func newCoinReply(c types.Coin) CoinReply {
	return CoinReply{Denom: c.Denom, Amount: cjson.Uint64(c.Amount)}
}

// GetBalance returns how much of [args.Denom] [args.Address] holds
func (s *Service) GetBalance(_ *http.Request, args *BalanceArgs, reply *CoinReply) error {
	coin, err := s.app.QueryBalance(types.Addr(args.Address), args.Denom)
	if err != nil {
		return err
	}
	*reply = newCoinReply(coin)
	return nil
}

// AddressArgs are arguments naming a single address
type AddressArgs struct {
	Address string `json:"address"`
}

// AllBalancesReply is the reply from GetAllBalances
type AllBalancesReply struct {
	Balances []CoinReply `json:"balances"`
}

// GetAllBalances returns every coin [args.Address] holds
func (s *Service) GetAllBalances(_ *http.Request, args *AddressArgs, reply *AllBalancesReply) error {
	coins, err := s.app.QueryAllBalances(types.Addr(args.Address))
	if err != nil {
		return err
	}
	reply.Balances = make([]CoinReply, len(coins))
	for i, c := range coins {
		reply.Balances[i] = newCoinReply(c)
	}
	return nil
}

// SupplyArgs are the arguments to GetSupply
type SupplyArgs struct {
	Denom string `json:"denom"`
}

// GetSupply returns the total amount of [args.Denom]
func (s *Service) GetSupply(_ *http.Request, args *SupplyArgs, reply *CoinReply) error {
	coin, err := s.app.QuerySupply(args.Denom)
	if err != nil {
		return err
	}
	*reply = newCoinReply(coin)
	return nil
}

// ContractInfoReply is the reply from GetContractInfo
type ContractInfoReply struct {
	CodeID  cjson.Uint64 `json:"codeID"`
	Creator string       `json:"creator"`
	Admin   string       `json:"admin"`
	Label   string       `json:"label"`
	Created cjson.Uint64 `json:"created"`
}

// GetContractInfo returns the metadata of the contract at [args.Address]
func (s *Service) GetContractInfo(_ *http.Request, args *AddressArgs, reply *ContractInfoReply) error {
	info, err := s.app.QueryContractInfo(types.Addr(args.Address))
	if err != nil {
		return err
	}
	*reply = ContractInfoReply{
		CodeID:  cjson.Uint64(info.CodeID),
		Creator: string(info.Creator),
		Admin:   string(info.Admin),
		Label:   info.Label,
		Created: cjson.Uint64(info.Created),
	}
	return nil
}

// QuerySmartArgs are the arguments to QuerySmart
type QuerySmartArgs struct {
	Address string          `json:"address"`
	Msg     json.RawMessage `json:"msg"`
}

// DataReply carries bytes encoded with [Encoding]
type DataReply struct {
	Data     string              `json:"data"`
	Encoding formatting.Encoding `json:"encoding"`
}

func newDataReply(b []byte) (DataReply, error) {
	data, err := formatting.EncodeWithChecksum(formatting.Hex, b)
	if err != nil {
		return DataReply{}, fmt.Errorf("couldn't encode data as string: %w", err)
	}
	return DataReply{Data: data, Encoding: formatting.Hex}, nil
}

// QuerySmart runs the query entry point of the contract at [args.Address]
func (s *Service) QuerySmart(_ *http.Request, args *QuerySmartArgs, reply *DataReply) error {
	b, err := s.app.Query(types.WasmSmartQuery{ContractAddr: types.Addr(args.Address), Msg: args.Msg})
	if err != nil {
		return err
	}
	*reply, err = newDataReply(b)
	return err
}

// QueryRawArgs are the arguments to QueryRaw
type QueryRawArgs struct {
	Address string `json:"address"`
	// Key is hex encoded
	Key string `json:"key"`
}

// QueryRaw reads a key from the storage of the contract at [args.Address]
func (s *Service) QueryRaw(_ *http.Request, args *QueryRawArgs, reply *DataReply) error {
	key, err := formatting.Decode(formatting.Hex, args.Key)
	if err != nil {
		return fmt.Errorf("couldn't decode key: %w", err)
	}
	b, err := s.app.QueryWasmRaw(types.Addr(args.Address), key)
	if err != nil {
		return err
	}
	*reply, err = newDataReply(b)
	return err
}

// SendArgs are the arguments to Send
type SendArgs struct {
	From string `json:"from"`
	To   string `json:"to"`
	// Amount is a list such as "10utok,3uatom"
	Amount string `json:"amount"`
}

// TxReply is the outcome of a state-changing call
type TxReply struct {
	Events   []types.Event       `json:"events"`
	Data     string              `json:"data"`
	Encoding formatting.Encoding `json:"encoding"`
}

func newTxReply(res types.AppResponse) (TxReply, error) {
	data, err := newDataReply(res.Data)
	if err != nil {
		return TxReply{}, err
	}
	events := res.Events
	if events == nil {
		events = []types.Event{}
	}
	return TxReply{Events: events, Data: data.Data, Encoding: data.Encoding}, nil
}

// Send transfers [args.Amount] from [args.From] to [args.To]
func (s *Service) Send(_ *http.Request, args *SendArgs, reply *TxReply) error {
	amount, err := types.ParseCoins(args.Amount)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	res, err := s.app.Send(types.Addr(args.From), types.Addr(args.To), amount)
	if err != nil {
		return err
	}
	*reply, err = newTxReply(res)
	return err
}

// InstantiateArgs are the arguments to Instantiate
type InstantiateArgs struct {
	Sender string          `json:"sender"`
	CodeID cjson.Uint64    `json:"codeID"`
	Msg    json.RawMessage `json:"msg"`
	Funds  string          `json:"funds"`
	Label  string          `json:"label"`
	Admin  string          `json:"admin"`
}

// InstantiateReply is the reply from Instantiate
type InstantiateReply struct {
	Address string `json:"address"`
	TxReply
}

// Instantiate creates a contract from stored code
func (s *Service) Instantiate(_ *http.Request, args *InstantiateArgs, reply *InstantiateReply) error {
	funds, err := types.ParseCoins(args.Funds)
	if err != nil {
		return err
	}
	msg := types.WasmInstantiate{
		CodeID: uint64(args.CodeID),
		Msg:    args.Msg,
		Funds:  funds,
		Label:  args.Label,
		Admin:  types.Addr(args.Admin),
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	res, err := s.app.Execute(types.Addr(args.Sender), msg)
	if err != nil {
		return err
	}
	ir, err := types.ParseInstantiateResponse(res.Data)
	if err != nil {
		return err
	}
	tx, err := newTxReply(res)
	if err != nil {
		return err
	}
	*reply = InstantiateReply{Address: ir.Address, TxReply: tx}
	return nil
}

// ExecuteArgs are the arguments to Execute
type ExecuteArgs struct {
	Sender  string          `json:"sender"`
	Address string          `json:"address"`
	Msg     json.RawMessage `json:"msg"`
	Funds   string          `json:"funds"`
}

// Execute calls the execute entry point of the contract at [args.Address]
func (s *Service) Execute(_ *http.Request, args *ExecuteArgs, reply *TxReply) error {
	funds, err := types.ParseCoins(args.Funds)
	if err != nil {
		return err
	}
	msg := types.WasmExecute{
		ContractAddr: types.Addr(args.Address),
		Msg:          args.Msg,
		Funds:        funds,
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	res, err := s.app.Execute(types.Addr(args.Sender), msg)
	if err != nil {
		return err
	}
	*reply, err = newTxReply(res)
	return err
}

// ParseCoinsArgs are the arguments to ParseCoins
type ParseCoinsArgs struct {
	Coins string `json:"coins"`
}

// ParseCoinsReply is the reply from ParseCoins
type ParseCoinsReply struct {
	Coins []CoinReply `json:"coins"`
}

// ParseCoins normalizes a list such as "10utok,3uatom" the way Send and
// Execute read their funds.
func (*Service) ParseCoins(_ *http.Request, args *ParseCoinsArgs, reply *ParseCoinsReply) error {
	coins, err := types.ParseCoins(args.Coins)
	if err != nil {
		return err
	}
	reply.Coins = make([]CoinReply, len(coins))
	for i, c := range coins {
		reply.Coins[i] = newCoinReply(c)
	}
	return nil
}
