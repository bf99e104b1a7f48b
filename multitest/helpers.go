// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multitest

import (
	"encoding/json"

	"github.com/ava-labs/multitest/types"
)

// InstantiateContract instantiates the code [codeID] on behalf of [sender]
// and returns the new contract's address.
func (a *App) InstantiateContract(
	codeID uint64,
	sender types.Addr,
	msg interface{},
	funds types.Coins,
	label string,
	admin types.Addr,
) (types.Addr, error) {
	inst, err := types.NewWasmInstantiate(codeID, msg, funds, label, admin)
	if err != nil {
		return "", err
	}
	res, err := a.Execute(sender, inst)
	if err != nil {
		return "", err
	}
	ir, err := types.ParseInstantiateResponse(res.Data)
	if err != nil {
		return "", err
	}
	return types.Addr(ir.Address), nil
}

// ExecuteContract calls [contract] with [msg] on behalf of [sender].
func (a *App) ExecuteContract(sender, contract types.Addr, msg interface{}, funds types.Coins) (types.AppResponse, error) {
	exec, err := types.NewWasmExecute(contract, msg, funds)
	if err != nil {
		return types.AppResponse{}, err
	}
	return a.Execute(sender, exec)
}

// MigrateContract moves [contract] to [newCodeID]. [sender] must be its
// admin.
func (a *App) MigrateContract(sender, contract types.Addr, newCodeID uint64, msg interface{}) (types.AppResponse, error) {
	migrate, err := types.NewWasmMigrate(contract, newCodeID, msg)
	if err != nil {
		return types.AppResponse{}, err
	}
	return a.Execute(sender, migrate)
}

// WasmSudo calls the privileged entry point of [contract].
func (a *App) WasmSudo(contract types.Addr, msg interface{}) (types.AppResponse, error) {
	sudo, err := types.NewWasmSudo(contract, msg)
	if err != nil {
		return types.AppResponse{}, err
	}
	return a.Sudo(sudo)
}

// Send transfers [amount] from [from] to [to].
func (a *App) Send(from, to types.Addr, amount types.Coins) (types.AppResponse, error) {
	return a.Execute(from, types.BankSend{ToAddress: to, Amount: amount})
}

// QueryBalance returns how much of [denom] [addr] holds.
func (a *App) QueryBalance(addr types.Addr, denom string) (types.Coin, error) {
	var res types.BalanceResponse
	err := a.queryJSON(types.BankBalanceQuery{Address: addr, Denom: denom}, &res)
	return res.Amount, err
}

// QueryAllBalances returns every coin [addr] holds.
func (a *App) QueryAllBalances(addr types.Addr) (types.Coins, error) {
	var res types.AllBalancesResponse
	err := a.queryJSON(types.BankAllBalancesQuery{Address: addr}, &res)
	return res.Amount, err
}

// QuerySupply returns the total amount of [denom] held by every account.
func (a *App) QuerySupply(denom string) (types.Coin, error) {
	var res types.SupplyResponse
	err := a.queryJSON(types.BankSupplyQuery{Denom: denom}, &res)
	return res.Amount, err
}

// QueryContractInfo returns the metadata of [contract].
func (a *App) QueryContractInfo(contract types.Addr) (types.ContractInfoResponse, error) {
	var res types.ContractInfoResponse
	err := a.queryJSON(types.WasmContractInfoQuery{ContractAddr: contract}, &res)
	return res, err
}

// QueryCodeInfo returns the metadata of the code [codeID].
func (a *App) QueryCodeInfo(codeID uint64) (types.CodeInfoResponse, error) {
	var res types.CodeInfoResponse
	err := a.queryJSON(types.WasmCodeInfoQuery{CodeID: codeID}, &res)
	return res, err
}

// QueryWasmSmart runs the query entry point of [contract] with [msg] and
// decodes the JSON result into [out].
func (a *App) QueryWasmSmart(contract types.Addr, msg interface{}, out interface{}) error {
	q, err := types.NewWasmSmartQuery(contract, msg)
	if err != nil {
		return err
	}
	return a.queryJSON(q, out)
}

// QueryWasmRaw reads [key] from the storage of [contract]. A missing key
// yields nil.
func (a *App) QueryWasmRaw(contract types.Addr, key []byte) ([]byte, error) {
	return a.Query(types.WasmRawQuery{ContractAddr: contract, Key: key})
}

func (a *App) queryJSON(req types.QueryRequest, out interface{}) error {
	b, err := a.Query(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return types.Validationf("couldn't decode %T result: %s", req, err)
	}
	return nil
}
