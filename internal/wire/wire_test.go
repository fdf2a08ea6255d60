// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"bytes"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestGenesisBlockRoundTrip(t *testing.T) {
	require := require.New(t)

	b := &Block{Slot: 0, GenesisData: []byte("genesis-parameters")}
	encoded := b.Bytes()

	decoded, err := DecodeBlock(encoded)
	require.NoError(err)
	require.True(decoded.IsGenesis())
	require.Equal(b.GenesisData, decoded.GenesisData)
	require.Equal(b.Hash(), decoded.Hash())
}

func TestNormalBlockRoundTripAndSignature(t *testing.T) {
	require := require.New(t)

	tx := &Tx{Sender: ids.GenerateTestID(), Nonce: 1, Energy: 10, Payload: []byte("tx")}
	b := &Block{
		Slot:        1,
		ParentHash:  ids.GenerateTestID(),
		BakerID:     7,
		LastFinHash: ids.GenerateTestID(),
		Transactions: []*Tx{tx},
	}

	signCalls := 0
	b.SignWith(func(body []byte) [SignatureSize]byte {
		signCalls++
		var sig [SignatureSize]byte
		sig[0] = 0xAB
		return sig
	})
	require.Equal(1, signCalls)

	encoded := b.Bytes()
	decoded, err := DecodeBlock(encoded)
	require.NoError(err)
	require.Equal(b.Slot, decoded.Slot)
	require.Equal(b.ParentHash, decoded.ParentHash)
	require.Equal(b.BakerID, decoded.BakerID)
	require.Len(decoded.Transactions, 1)
	require.Equal(tx.Sender, decoded.Transactions[0].Sender)
	require.Equal(b.Signature, decoded.Signature)

	// Hash excludes the signature: flipping it must not change the hash.
	h1 := decoded.Hash()
	decoded.Signature[0] ^= 0xFF
	require.Equal(h1, decoded.Hash())
}

func TestDecodeBlockMalformed(t *testing.T) {
	require := require.New(t)
	_, err := DecodeBlock([]byte{0, 0, 0})
	require.ErrorIs(err, ErrMalformed)
}

func TestFinalizationRecordRoundTrip(t *testing.T) {
	require := require.New(t)

	r := &FinalizationRecord{
		Index:     3,
		BlockHash: ids.GenerateTestID(),
		Parties:   []uint32{0, 2, 3},
		Delay:     4,
	}
	r.BLSAggregate[0] = 0xCD

	decoded, err := DecodeFinalizationRecord(r.Bytes())
	require.NoError(err)
	require.Equal(r.Index, decoded.Index)
	require.Equal(r.BlockHash, decoded.BlockHash)
	require.Equal(r.Parties, decoded.Parties)
	require.Equal(r.BLSAggregate, decoded.BLSAggregate)
	require.Equal(r.Delay, decoded.Delay)
}

func TestImportFileRoundTrip(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	blocks := [][]byte{[]byte("block-a"), []byte("block-bb"), []byte("c")}
	for _, b := range blocks {
		require.NoError(WriteImportRecord(&buf, 1, b))
	}

	r := bytes.NewReader(buf.Bytes())
	var got [][]byte
	for {
		rec, err := ReadImportRecord(r)
		if err != nil {
			break
		}
		got = append(got, rec.Block)
	}
	require.Equal(blocks, got)
}
