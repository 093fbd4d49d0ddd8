// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package shard implements the loss-tolerant video shard reassembly
// pipeline: shards arriving out of order and with gaps are accumulated
// into frames and pushed to a decoder incrementally, never blocking on
// a dropped shard for longer than the two-frame window the accumulator
// keeps open.
package shard

import "errors"

var (
	// ErrWrongStream is returned when Submit is called with a shard
	// addressed to a different stream index than the accumulator owns.
	ErrWrongStream = errors.New("shard: stream index mismatch")

	// ErrEmptyFrame is returned by Splitter.Split when a frame's
	// bitstream contains nothing but garbage NAL units (AUD, filler,
	// SEI) and so has no payload left to shard.
	ErrEmptyFrame = errors.New("shard: frame has no data after stripping garbage NALs")
)
