// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package shard

import "github.com/wivrn-project/wivrnd/internal/wire"

// Decoder is the capability set an external video decoder exposes to
// the accumulator. Sampler and Extent surface the decoder's output
// image for the (out of scope) compositor; they are modeled here only
// so callers can treat decoders uniformly rather than through a type
// switch. Implementations live outside this module.
type Decoder interface {
	// PushData hands a contiguous run of shard payloads for frameIndex
	// to the decoder. partial is false only on the call that completes
	// the frame. spans alias accumulator-owned memory and are only
	// valid for the duration of the call.
	PushData(spans [][]byte, frameIndex uint64, partial bool) error

	// FrameCompleted is invoked once per completed frame, after the
	// final PushData for that frame, with the feedback record compiled
	// from shard timing and the first shard's view info.
	FrameCompleted(feedback wire.Feedback, viewInfo wire.ViewInfo)

	// Sampler exposes the decoder's current output image for
	// compositing. Opaque here; concrete decoders define the type.
	Sampler() any

	// Extent reports the negotiated frame dimensions.
	Extent() (width, height uint32)
}

// FeedbackSink delivers one Feedback message per frame index the
// accumulator observes, whether the frame decoded, arrived incomplete,
// or was skipped entirely because the peer advanced past it.
type FeedbackSink interface {
	SendFeedback(fb wire.Feedback) error
}
