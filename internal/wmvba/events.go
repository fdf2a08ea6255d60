// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wmvba

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/wire"
	"github.com/luxfi/bakerchain/internal/xcrypto"
)

// Event is one output of processing a WMVBA message: either a message to
// broadcast, or the instance reaching a final outcome.
type Event interface{ isEvent() }

// SendMessage asks the caller to broadcast Msg to the committee.
type SendMessage struct{ Msg *wire.FinalizationMessage }

func (SendMessage) isEvent() {}

// Complete reports the instance's final decision. HasValue is false when
// ABBA decided "no value" (bottom); otherwise Value, Parties and
// Aggregate carry the witnessed finalization proof.
type Complete struct {
	HasValue bool
	Value    ids.ID
	Parties  []uint32
	Aggregate [xcrypto.BLSSigSize]byte
}

func (Complete) isEvent() {}
