// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

// NextFinalizationHeight computes the block height that finalization
// index i targets, given the height finalized by index i-1 (lastFin) and
// the height of the candidate parent block, per:
//
//	H(i) = H(i-1) + max(1+minSkip, floor((parentHeight-lastFinHeight)/2))
func NextFinalizationHeight(lastFinHeight, parentHeight, minSkip uint64) uint64 {
	step := uint64(1) + minSkip
	if parentHeight > lastFinHeight {
		half := (parentHeight - lastFinHeight) / 2
		if half > step {
			step = half
		}
	}
	return lastFinHeight + step
}

// NextDelta computes the initial delta for a new finalization index from
// the previous index's settled record delay: max(1, delay/2) once delay
// exceeds 2, otherwise 1.
func NextDelta(previousDelay uint64) uint64 {
	if previousDelay <= 2 {
		return 1
	}
	half := previousDelay / 2
	if half < 1 {
		return 1
	}
	return half
}

// DoubleDelta advances delta on round failure.
func DoubleDelta(delta uint64) uint64 {
	return delta * 2
}
