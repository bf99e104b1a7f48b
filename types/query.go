// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// QueryRequest is a read-only request routed by family like a Msg.
type QueryRequest interface {
	Family() Family
}

type BankBalanceQuery struct {
	Address Addr   `json:"address"`
	Denom   string `json:"denom"`
}

type BankAllBalancesQuery struct {
	Address Addr `json:"address"`
}

type BankSupplyQuery struct {
	Denom string `json:"denom"`
}

func (BankBalanceQuery) Family() Family     { return FamilyBank }
func (BankAllBalancesQuery) Family() Family { return FamilyBank }
func (BankSupplyQuery) Family() Family      { return FamilyBank }

// WasmSmartQuery calls the query entry point of [ContractAddr].
type WasmSmartQuery struct {
	ContractAddr Addr   `json:"contract_addr"`
	Msg          []byte `json:"msg"`
}

// WasmRawQuery reads [Key] from the storage namespace of [ContractAddr].
type WasmRawQuery struct {
	ContractAddr Addr   `json:"contract_addr"`
	Key          []byte `json:"key"`
}

type WasmContractInfoQuery struct {
	ContractAddr Addr `json:"contract_addr"`
}

type WasmCodeInfoQuery struct {
	CodeID uint64 `json:"code_id"`
}

func (WasmSmartQuery) Family() Family        { return FamilyWasm }
func (WasmRawQuery) Family() Family          { return FamilyWasm }
func (WasmContractInfoQuery) Family() Family { return FamilyWasm }
func (WasmCodeInfoQuery) Family() Family     { return FamilyWasm }

type CustomQuery struct {
	Module  Family `json:"module,omitempty"`
	Payload []byte `json:"payload"`
}

func (q CustomQuery) Family() Family { return orCustom(q.Module) }

// BalanceResponse answers a BankBalanceQuery.
type BalanceResponse struct {
	Amount Coin `json:"amount"`
}

// AllBalancesResponse answers a BankAllBalancesQuery.
type AllBalancesResponse struct {
	Amount Coins `json:"amount"`
}

// SupplyResponse answers a BankSupplyQuery.
type SupplyResponse struct {
	Amount Coin `json:"amount"`
}

// ContractInfoResponse answers a WasmContractInfoQuery.
type ContractInfoResponse struct {
	CodeID  uint64 `json:"code_id"`
	Creator Addr   `json:"creator"`
	Admin   Addr   `json:"admin,omitempty"`
	Label   string `json:"label"`
	Created uint64 `json:"created"`
}

// CodeInfoResponse answers a WasmCodeInfoQuery.
type CodeInfoResponse struct {
	CodeID  uint64 `json:"code_id"`
	Creator Addr   `json:"creator"`
}
