// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	// CodecVersion is the current default codec version
	CodecVersion = 0
)

// Codec (de)serializes module-owned state records.
var Codec codec.Manager

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewDefaultManager()

	errs := wrappers.Errs{}
	errs.Add(
		Codec.RegisterCodec(CodecVersion, c),
	)
	if errs.Errored() {
		panic(errs.Err)
	}
}

// InstantiateResponse is the data an instantiation returns: the new
// contract's address and whatever data the contract itself returned.
type InstantiateResponse struct {
	Address string `serialize:"true" json:"address"`
	Data    []byte `serialize:"true" json:"data,omitempty"`
}

// Bytes encodes [r] with Codec.
func (r InstantiateResponse) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, &r)
}

// ParseInstantiateResponse decodes the data of an instantiation.
func ParseInstantiateResponse(data []byte) (InstantiateResponse, error) {
	var r InstantiateResponse
	if _, err := Codec.Unmarshal(data, &r); err != nil {
		return InstantiateResponse{}, Validationf("couldn't parse instantiate response: %s", err)
	}
	return r, nil
}
