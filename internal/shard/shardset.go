// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package shard

import "github.com/wivrn-project/wivrnd/internal/wire"

// slot holds one received shard's payload and flags. A nil slot means
// that index has not arrived yet.
type slot struct {
	payload []byte
	flags   uint8
}

// set is the per-frame shard-set: a densely-indexed (but possibly
// gappy) vector of shards plus the bookkeeping needed to dispatch
// contiguous runs to the decoder incrementally and to emit exactly one
// feedback message for the frame.
type set struct {
	frameIndex    uint64
	slots         []*slot // grows to the largest observed shard index + 1
	dispatched    int     // length of the contiguous prefix already pushed
	viewInfo      *wire.ViewInfo
	feedbackSent  bool
	firstPacketNs int64
	lastPacketNs  int64
	timing        *wire.TimingInfo // from the last (end_of_frame) shard
}

func newSet(frameIndex uint64) *set {
	return &set{frameIndex: frameIndex}
}

// insert places the shard at idx if that slot is empty. Returns false
// if the slot was already filled (duplicate insert, a no-op per
// spec.md's idempotency invariant).
func (s *set) insert(idx uint16, payload []byte, flags uint8, recvNs int64) bool {
	i := int(idx)
	if i >= len(s.slots) {
		grown := make([]*slot, i+1)
		copy(grown, s.slots)
		s.slots = grown
	}
	if s.slots[i] != nil {
		return false
	}
	s.slots[i] = &slot{payload: payload, flags: flags}

	if s.firstPacketNs == 0 || recvNs < s.firstPacketNs {
		s.firstPacketNs = recvNs
	}
	if recvNs > s.lastPacketNs {
		s.lastPacketNs = recvNs
	}
	return true
}

// complete reports whether the shard-set's last known slot carries
// end_of_frame and every slot up to it is present.
func (s *set) complete() bool {
	if len(s.slots) == 0 {
		return false
	}
	last := s.slots[len(s.slots)-1]
	if last == nil || last.flags&wire.FlagEndOfFrame == 0 {
		return false
	}
	return s.densePrefix() == len(s.slots)
}

// densePrefix returns the length of the contiguous run of present
// slots starting at index 0.
func (s *set) densePrefix() int {
	n := 0
	for n < len(s.slots) && s.slots[n] != nil {
		n++
	}
	return n
}
