// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"encoding/json"
)

// Family names the module that owns a message, query or privileged message.
// It is the only thing the router looks at.
type Family string

const (
	FamilyBank   Family = "bank"
	FamilyWasm   Family = "wasm"
	FamilyCustom Family = "custom"
)

// Msg is an operation submitted by a user or emitted by a contract.
// New families only need a type with a Family and a registered module.
type Msg interface {
	Family() Family
}

// SudoMsg is a privileged operation. It is only reachable through the
// router's Sudo path, never from a user-submitted or contract-emitted Msg.
type SudoMsg interface {
	Family() Family
	sudo()
}

var (
	_ Msg = BankSend{}
	_ Msg = BankBurn{}
	_ Msg = WasmInstantiate{}
	_ Msg = WasmExecute{}
	_ Msg = WasmMigrate{}
	_ Msg = WasmUpdateAdmin{}
	_ Msg = WasmClearAdmin{}
	_ Msg = CustomMsg{}

	_ SudoMsg = BankMint{}
	_ SudoMsg = WasmSudo{}
	_ SudoMsg = CustomSudo{}
)

// BankSend moves [Amount] from the sender to [ToAddress].
type BankSend struct {
	ToAddress Addr  `json:"to_address"`
	Amount    Coins `json:"amount"`
}

// BankBurn destroys [Amount] of the sender's funds.
type BankBurn struct {
	Amount Coins `json:"amount"`
}

func (BankSend) Family() Family { return FamilyBank }
func (BankBurn) Family() Family { return FamilyBank }

// WasmInstantiate creates a contract from the code stored under [CodeID].
type WasmInstantiate struct {
	CodeID uint64 `json:"code_id"`
	Msg    []byte `json:"msg"`
	Funds  Coins  `json:"funds"`
	Label  string `json:"label"`
	Admin  Addr   `json:"admin,omitempty"`
}

// WasmExecute calls the execute entry point of [ContractAddr].
type WasmExecute struct {
	ContractAddr Addr   `json:"contract_addr"`
	Msg          []byte `json:"msg"`
	Funds        Coins  `json:"funds"`
}

// WasmMigrate moves [ContractAddr] to [NewCodeID]. Only the admin may do so.
type WasmMigrate struct {
	ContractAddr Addr   `json:"contract_addr"`
	NewCodeID    uint64 `json:"new_code_id"`
	Msg          []byte `json:"msg"`
}

// WasmUpdateAdmin hands the admin role of [ContractAddr] to [Admin].
type WasmUpdateAdmin struct {
	ContractAddr Addr `json:"contract_addr"`
	Admin        Addr `json:"admin"`
}

// WasmClearAdmin removes the admin of [ContractAddr], freezing its code.
type WasmClearAdmin struct {
	ContractAddr Addr `json:"contract_addr"`
}

func (WasmInstantiate) Family() Family { return FamilyWasm }
func (WasmExecute) Family() Family     { return FamilyWasm }
func (WasmMigrate) Family() Family     { return FamilyWasm }
func (WasmUpdateAdmin) Family() Family { return FamilyWasm }
func (WasmClearAdmin) Family() Family  { return FamilyWasm }

// CustomMsg carries an opaque payload to the module registered for [Module],
// or to the custom family when [Module] is empty.
type CustomMsg struct {
	Module  Family `json:"module,omitempty"`
	Payload []byte `json:"payload"`
}

func (m CustomMsg) Family() Family { return orCustom(m.Module) }

// BankMint creates [Amount] out of thin air for [ToAddress].
type BankMint struct {
	ToAddress Addr  `json:"to_address"`
	Amount    Coins `json:"amount"`
}

// WasmSudo calls the privileged sudo entry point of [ContractAddr].
type WasmSudo struct {
	ContractAddr Addr   `json:"contract_addr"`
	Msg          []byte `json:"msg"`
}

// CustomSudo is the privileged counterpart of CustomMsg.
type CustomSudo struct {
	Module  Family `json:"module,omitempty"`
	Payload []byte `json:"payload"`
}

func (BankMint) Family() Family     { return FamilyBank }
func (WasmSudo) Family() Family     { return FamilyWasm }
func (m CustomSudo) Family() Family { return orCustom(m.Module) }

func (BankMint) sudo()   {}
func (WasmSudo) sudo()   {}
func (CustomSudo) sudo() {}

func orCustom(f Family) Family {
	if f == "" {
		return FamilyCustom
	}
	return f
}

// NewWasmInstantiate JSON encodes [msg] into an instantiate operation.
func NewWasmInstantiate(codeID uint64, msg interface{}, funds Coins, label string, admin Addr) (WasmInstantiate, error) {
	b, err := encodePayload(msg)
	if err != nil {
		return WasmInstantiate{}, err
	}
	return WasmInstantiate{CodeID: codeID, Msg: b, Funds: funds, Label: label, Admin: admin}, nil
}

// NewWasmExecute JSON encodes [msg] into an execute operation.
func NewWasmExecute(contract Addr, msg interface{}, funds Coins) (WasmExecute, error) {
	b, err := encodePayload(msg)
	if err != nil {
		return WasmExecute{}, err
	}
	return WasmExecute{ContractAddr: contract, Msg: b, Funds: funds}, nil
}

// NewWasmMigrate JSON encodes [msg] into a migrate operation.
func NewWasmMigrate(contract Addr, newCodeID uint64, msg interface{}) (WasmMigrate, error) {
	b, err := encodePayload(msg)
	if err != nil {
		return WasmMigrate{}, err
	}
	return WasmMigrate{ContractAddr: contract, NewCodeID: newCodeID, Msg: b}, nil
}

// NewWasmSudo JSON encodes [msg] into a privileged sudo operation.
func NewWasmSudo(contract Addr, msg interface{}) (WasmSudo, error) {
	b, err := encodePayload(msg)
	if err != nil {
		return WasmSudo{}, err
	}
	return WasmSudo{ContractAddr: contract, Msg: b}, nil
}

// NewWasmSmartQuery JSON encodes [msg] into a smart query.
func NewWasmSmartQuery(contract Addr, msg interface{}) (WasmSmartQuery, error) {
	b, err := encodePayload(msg)
	if err != nil {
		return WasmSmartQuery{}, err
	}
	return WasmSmartQuery{ContractAddr: contract, Msg: b}, nil
}

// encodePayload passes raw bytes through and JSON encodes anything else.
func encodePayload(msg interface{}) ([]byte, error) {
	switch m := msg.(type) {
	case []byte:
		return m, nil
	case json.RawMessage:
		return m, nil
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, Validationf("couldn't encode payload: %s", err)
	}
	return b, nil
}
