// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package shard

import (
	"bytes"
	"fmt"

	"github.com/wivrn-project/wivrnd/internal/codecbitstream"
	"github.com/wivrn-project/wivrnd/internal/wire"
)

// startCode4 is the Annex-B start code re-attached to every retained NAL
// unit; SplitAnnexB strips start codes on the way in, so the splitter
// re-inserts them on the way out.
var startCode4 = []byte{0, 0, 0, 1}

// Splitter slices one encoder-produced frame's Annex-B bitstream into
// wire shards -- the server-side counterpart of Accumulator: Accumulator
// reassembles received shards into a frame, Splitter slices a frame into
// shards to send. Garbage NAL units (AUD, filler, SEI) are stripped
// before chunking, per spec.md section 6's codec bitstream
// classification.
type Splitter struct {
	streamIndex uint8
	codec       codecbitstream.Codec
}

// NewSplitter builds a splitter for one advertised video stream.
func NewSplitter(streamIndex uint8, codec codecbitstream.Codec) *Splitter {
	return &Splitter{streamIndex: streamIndex, codec: codec}
}

// Split strips garbage NAL units from bitstream, then chunks the
// remainder into wire.MaxShardPayload-sized shards. viewInfo is attached
// to the first shard, timing to the last, matching the placement
// Accumulator expects when reassembling (spec.md section 3: "Last shard
// of a frame carries timing_info. First shard carries view_info.").
func (sp *Splitter) Split(frameIndex uint64, bitstream []byte, viewInfo *wire.ViewInfo, timing *wire.TimingInfo) ([]*wire.VideoStreamDataShard, error) {
	var buf bytes.Buffer
	for _, nal := range codecbitstream.SplitAnnexB(bitstream) {
		class, err := codecbitstream.Classify(sp.codec, nal)
		if err != nil {
			return nil, fmt.Errorf("shard: classify nal: %w", err)
		}
		if class == codecbitstream.ClassGarbage {
			continue
		}
		buf.Write(startCode4)
		buf.Write(nal)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyFrame
	}
	payload := buf.Bytes()

	chunkCount := (len(payload) + wire.MaxShardPayload - 1) / wire.MaxShardPayload
	shards := make([]*wire.VideoStreamDataShard, 0, chunkCount)
	for i := 0; i < chunkCount; i++ {
		start := i * wire.MaxShardPayload
		end := start + wire.MaxShardPayload
		if end > len(payload) {
			end = len(payload)
		}
		chunk := make([]byte, end-start)
		copy(chunk, payload[start:end])

		var flags uint8
		last := i == chunkCount-1
		if i == 0 {
			flags |= wire.FlagStartOfSlice
		}
		if last {
			flags |= wire.FlagEndOfSlice | wire.FlagEndOfFrame
		}

		sds := &wire.VideoStreamDataShard{
			StreamIndex: sp.streamIndex,
			FrameIndex:  frameIndex,
			ShardIndex:  uint16(i),
			Flags:       flags,
			Payload:     chunk,
		}
		if i == 0 {
			sds.ViewInfo = viewInfo
		}
		if last {
			sds.TimingInfo = timing
		}
		shards = append(shards, sds)
	}
	return shards, nil
}
