// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteImportRecord appends one block-import record to w:
// version:varint ‖ size:u64_be ‖ block_bytes.
func WriteImportRecord(w io.Writer, version uint64, blockBytes []byte) error {
	var varintBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(varintBuf[:], version)
	if _, err := w.Write(varintBuf[:n]); err != nil {
		return err
	}
	var sizeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], uint64(len(blockBytes)))
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(blockBytes)
	return err
}

// ImportRecord is one decoded entry of a block-import file.
type ImportRecord struct {
	Version uint64
	Block   []byte
}

// ReadImportRecord reads the next record from r. It returns io.EOF when the
// stream ends cleanly between records.
func ReadImportRecord(r io.ByteReader) (*ImportRecord, error) {
	version, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	var sizeBuf [8]byte
	for i := range sizeBuf {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("wire: truncated import record size: %w", err)
		}
		sizeBuf[i] = b
	}
	size := binary.BigEndian.Uint64(sizeBuf[:])
	block := make([]byte, size)
	for i := range block {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("wire: truncated import record body: %w", err)
		}
		block[i] = b
	}
	return &ImportRecord{Version: version, Block: block}, nil
}
