// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multitest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/utils/formatting"
	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/multitest/types"
)

func TestServiceSerializesWrites(t *testing.T) {
	require := require.New(t)

	app, _, _ := setup(t, 0)
	s := NewService(app)

	const senders = 20
	var (
		wg   sync.WaitGroup
		errs = make([]error, senders)
	)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var reply TxReply
			errs[i] = s.Send(nil, &SendArgs{From: "alice", To: "bob", Amount: "1utok"}, &reply)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(err)
	}
	require.Equal(uint64(senders), balanceOf(t, app, bob))
}

func TestServiceReplies(t *testing.T) {
	require := require.New(t)

	app, _, c := setup(t, 5)
	s := NewService(app)

	var block BlockReply
	require.NoError(s.NextBlock(nil, &struct{}{}, &block))
	require.Equal(uint64(DefaultHeight+1), uint64(block.Height))

	var tx TxReply
	require.NoError(s.Execute(nil, &ExecuteArgs{
		Sender:  "alice",
		Address: string(c),
		Msg:     []byte(`{"pay":{"to":"dave","amount":1}}`),
	}, &tx))
	require.Len(tx.Events, 3)
	require.Equal(uint64(1), balanceOf(t, app, dave))

	require.Error(s.Send(nil, &SendArgs{From: "alice", To: "bob", Amount: "ten"}, &tx))

	var info ContractInfoReply
	require.NoError(s.GetContractInfo(nil, &AddressArgs{Address: string(c)}, &info))
	require.Equal("harness", info.Label)
}

func TestServiceQueryRawRoundTrip(t *testing.T) {
	require := require.New(t)

	app, _, c := setup(t, 0)
	s := NewService(app)

	var tx TxReply
	require.NoError(s.Execute(nil, &ExecuteArgs{
		Sender:  "alice",
		Address: string(c),
		Msg:     []byte(`{"observe":{}}`),
		Funds:   "3utok",
	}, &tx))

	key, err := formatting.EncodeWithChecksum(formatting.Hex, pendingKey)
	require.NoError(err)

	var reply DataReply
	require.NoError(s.QueryRaw(nil, &QueryRawArgs{Address: string(c), Key: key}, &reply))
	require.Equal(formatting.Hex, reply.Encoding)
	value, err := formatting.Decode(reply.Encoding, reply.Data)
	require.NoError(err)
	require.Equal([]byte("yes"), value)

	// keys must carry a checksum
	err = s.QueryRaw(nil, &QueryRawArgs{Address: string(c), Key: "0x70656e64696e67"}, &reply)
	require.Error(err)
	require.Contains(err.Error(), "couldn't decode key")
}

func TestServiceParseCoins(t *testing.T) {
	require := require.New(t)

	app, _, _ := setup(t, 0)
	s := NewService(app)

	var reply ParseCoinsReply
	require.NoError(s.ParseCoins(nil, &ParseCoinsArgs{Coins: "3utok, 2uatom,1utok"}, &reply))
	require.Equal([]CoinReply{
		{Denom: "uatom", Amount: cjson.Uint64(2)},
		{Denom: "utok", Amount: cjson.Uint64(4)},
	}, reply.Coins)

	err := s.ParseCoins(nil, &ParseCoinsArgs{Coins: "ten utok"}, &reply)
	require.ErrorIs(err, types.ErrValidation)
}
