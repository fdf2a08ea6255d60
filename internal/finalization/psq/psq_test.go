// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package psq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/bakerchain/internal/wire"
)

func sigN(n byte) [wire.SignatureSize]byte {
	var s [wire.SignatureSize]byte
	s[0] = n
	return s
}

func TestInsertDeduplicates(t *testing.T) {
	require := require.New(t)
	q := New(60 * time.Second)
	base := time.Now()

	require.True(q.Insert(sigN(1), base))
	require.False(q.Insert(sigN(1), base.Add(time.Second)))
	require.Equal(1, q.Len())
}

func TestPurgeExpiresOldEntries(t *testing.T) {
	require := require.New(t)
	q := New(60 * time.Second)
	base := time.Now()

	q.Insert(sigN(1), base)
	q.Insert(sigN(2), base.Add(30*time.Second))
	require.Equal(2, q.Len())

	// Inserting far enough in the future should purge sig 1 but keep sig 2.
	q.Insert(sigN(3), base.Add(90*time.Second))
	require.False(q.Seen(sigN(1), base.Add(90*time.Second)))
	require.True(q.Seen(sigN(2), base.Add(90*time.Second)))
	require.True(q.Seen(sigN(3), base.Add(90*time.Second)))
}
