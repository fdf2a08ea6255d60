// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tree

import "errors"

var (
	// ErrUnknownParent is returned internally when a block's parent has not
	// been seen yet; callers should treat the block as queued, not failed.
	ErrUnknownParent = errors.New("tree: parent not yet known")

	// ErrAlreadyKnown means the block hash is already tracked.
	ErrAlreadyKnown = errors.New("tree: block already known")

	// ErrParentDead means the block's parent is marked dead and the child
	// can never become alive.
	ErrParentDead = errors.New("tree: parent is dead")

	// ErrDuplicateFinalization means a finalization record was supplied for
	// a block that is already finalized.
	ErrDuplicateFinalization = errors.New("tree: block already finalized")

	// ErrNotAlive means a finalization record targets a hash that is not
	// currently an alive block.
	ErrNotAlive = errors.New("tree: target block is not alive")

	// ErrStaleHeight means a finalization record targets a height at or
	// below the last finalized height.
	ErrStaleHeight = errors.New("tree: finalization height is not ahead of last finalized block")

	// ErrNoArchive means Archived was called without a configured Archive
	// store, or for a block that was never written to one.
	ErrNoArchive = errors.New("tree: no archived copy available")
)
