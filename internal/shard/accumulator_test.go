// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package shard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wivrn-project/wivrnd/internal/wire"
)

type recordedPush struct {
	spans      [][]byte
	frameIndex uint64
	partial    bool
}

type fakeDecoder struct {
	mu        sync.Mutex
	pushes    []recordedPush
	completes []wire.Feedback
	views     []wire.ViewInfo
}

func (d *fakeDecoder) PushData(spans [][]byte, frameIndex uint64, partial bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([][]byte, len(spans))
	for i, s := range spans {
		b := make([]byte, len(s))
		copy(b, s)
		cp[i] = b
	}
	d.pushes = append(d.pushes, recordedPush{spans: cp, frameIndex: frameIndex, partial: partial})
	return nil
}

func (d *fakeDecoder) FrameCompleted(fb wire.Feedback, vi wire.ViewInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completes = append(d.completes, fb)
	d.views = append(d.views, vi)
}

func (d *fakeDecoder) Sampler() any                         { return nil }
func (d *fakeDecoder) Extent() (width, height uint32)       { return 1920, 1080 }

type fakeFeedbackSink struct {
	mu  sync.Mutex
	fbs []wire.Feedback
}

func (f *fakeFeedbackSink) SendFeedback(fb wire.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fbs = append(f.fbs, fb)
	return nil
}

func shardOf(frameIndex uint64, idx uint16, flags uint8, payload byte) *wire.VideoStreamDataShard {
	return &wire.VideoStreamDataShard{
		StreamIndex: 0,
		FrameIndex:  frameIndex,
		ShardIndex:  idx,
		Flags:       flags,
		ViewInfo:    &wire.ViewInfo{},
		Payload:     []byte{payload},
	}
}

func newTestAccumulator() (*Accumulator, *fakeDecoder, *fakeFeedbackSink) {
	dec := &fakeDecoder{}
	fb := &fakeFeedbackSink{}
	var n int64
	clock := func() int64 { n++; return n }
	return NewAccumulator(0, dec, fb, clock, nil), dec, fb
}

func TestAccumulator_SingleShardHappyPath(t *testing.T) {
	acc, dec, fb := newTestAccumulator()

	s := shardOf(1, 0, wire.FlagStartOfSlice|wire.FlagEndOfSlice|wire.FlagEndOfFrame, 0xAA)
	s.TimingInfo = &wire.TimingInfo{}
	require.NoError(t, acc.Submit(s))

	require.Len(t, dec.pushes, 1)
	require.False(t, dec.pushes[0].partial)
	require.Equal(t, uint64(1), dec.pushes[0].frameIndex)
	require.Equal(t, [][]byte{{0xAA}}, dec.pushes[0].spans)

	require.Len(t, dec.completes, 1)
	require.Len(t, fb.fbs, 1)
	require.Equal(t, uint64(1), fb.fbs[0].FrameIndex)
}

func TestAccumulator_OutOfOrderWithinFrame(t *testing.T) {
	acc, dec, _ := newTestAccumulator()

	require.NoError(t, acc.Submit(shardOf(5, 2, wire.FlagEndOfFrame, 2)))
	require.Empty(t, dec.pushes, "nothing dispatched until index 0 arrives")

	require.NoError(t, acc.Submit(shardOf(5, 0, 0, 0)))
	require.Len(t, dec.pushes, 1)
	require.True(t, dec.pushes[0].partial)
	require.Equal(t, [][]byte{{0}}, dec.pushes[0].spans)

	require.NoError(t, acc.Submit(shardOf(5, 1, 0, 1)))
	require.Len(t, dec.pushes, 2)
	require.False(t, dec.pushes[1].partial)
	require.Equal(t, [][]byte{{1}, {2}}, dec.pushes[1].spans)
	require.Len(t, dec.completes, 1)
}

func TestAccumulator_SkippedFrameYieldsFeedbackWithoutDecode(t *testing.T) {
	acc, dec, fb := newTestAccumulator()

	// Frame 1 never arrives complete; frame 3 arrives, two ahead, which
	// forces frame 1 and the still-open frame 2 slot to be abandoned.
	require.NoError(t, acc.Submit(shardOf(1, 0, 0, 0)))
	require.NoError(t, acc.Submit(shardOf(3, 0, wire.FlagEndOfFrame, 9)))

	require.Len(t, fb.fbs, 3, "frame 1 and frame 2 are abandoned, frame 3 completes -- one feedback each")
	require.Equal(t, uint64(1), fb.fbs[0].FrameIndex)
	require.Equal(t, uint64(2), fb.fbs[1].FrameIndex)
	require.Equal(t, uint64(3), fb.fbs[2].FrameIndex)

	require.Len(t, dec.pushes, 2) // the partial push for frame 1, plus frame 3's full push
	require.Equal(t, uint64(3), dec.pushes[1].frameIndex)
}

func TestAccumulator_AdvanceByOnePromotesNext(t *testing.T) {
	acc, dec, fb := newTestAccumulator()

	require.NoError(t, acc.Submit(shardOf(1, 0, wire.FlagEndOfFrame, 1)))
	dec.pushes = nil
	fb.fbs = nil

	require.NoError(t, acc.Submit(shardOf(2, 0, wire.FlagEndOfFrame, 2)))
	require.Len(t, dec.pushes, 1)
	require.Equal(t, uint64(2), dec.pushes[0].frameIndex)
	require.False(t, dec.pushes[0].partial)
}

func TestAccumulator_DuplicateInsertIsNoOp(t *testing.T) {
	acc, dec, _ := newTestAccumulator()

	require.NoError(t, acc.Submit(shardOf(1, 0, wire.FlagEndOfFrame, 1)))
	require.Len(t, dec.pushes, 1)

	require.NoError(t, acc.Submit(shardOf(1, 0, wire.FlagEndOfFrame, 1)))
	require.Len(t, dec.pushes, 1, "duplicate shard must not re-trigger dispatch")
}

func TestAccumulator_PastFrameDropped(t *testing.T) {
	acc, dec, _ := newTestAccumulator()

	require.NoError(t, acc.Submit(shardOf(5, 0, wire.FlagEndOfFrame, 5)))
	require.NoError(t, acc.Submit(shardOf(3, 0, wire.FlagEndOfFrame, 3)))
	require.Len(t, dec.pushes, 1, "a shard for a frame already passed must be silently dropped")
}

func TestAccumulator_LargeGapFastForwardsWithoutLoss(t *testing.T) {
	// spec.md section 8: "∀ sequences of shards whose frame-index gaps
	// exceed 2: exactly one feedback is emitted per observed
	// frame-index, and current.frame_index equals the largest seen
	// frame-index after processing" -- with no upper bound on the gap,
	// since FrameIndex is a genuine wire u64, never a truncated legacy
	// u8 field that would make a large diff ambiguous.
	acc, dec, fb := newTestAccumulator()

	require.NoError(t, acc.Submit(shardOf(1000, 0, 0, 0)))
	const farFuture = 1000 + 1_000_000
	require.NoError(t, acc.Submit(shardOf(farFuture, 0, wire.FlagEndOfFrame, 9)))

	require.Len(t, fb.fbs, 3, "frame 1000 and the buffered 1001 slot are abandoned, farFuture completes")
	require.Equal(t, uint64(1000), fb.fbs[0].FrameIndex)
	require.Equal(t, uint64(1001), fb.fbs[1].FrameIndex)
	require.Equal(t, uint64(farFuture), fb.fbs[2].FrameIndex)
	require.Equal(t, uint64(farFuture), acc.current.frameIndex)
	require.Equal(t, uint64(farFuture+1), acc.next.frameIndex)
	require.Len(t, dec.pushes, 2)
	require.Equal(t, uint64(farFuture), dec.pushes[len(dec.pushes)-1].frameIndex)
}

func TestAccumulator_WrongStreamRejected(t *testing.T) {
	acc, _, _ := newTestAccumulator()
	s := shardOf(1, 0, wire.FlagEndOfFrame, 1)
	s.StreamIndex = 7
	require.ErrorIs(t, acc.Submit(s), ErrWrongStream)
}

func TestAccumulator_PermutationInvarianceAcrossShardOrder(t *testing.T) {
	orders := [][]uint16{
		{0, 1, 2},
		{2, 1, 0},
		{1, 0, 2},
		{2, 0, 1},
	}
	payloads := map[uint16]byte{0: 0xA0, 1: 0xA1, 2: 0xA2}

	for _, order := range orders {
		acc, dec, fb := newTestAccumulator()
		for _, idx := range order {
			flags := uint8(0)
			if idx == 2 {
				flags = wire.FlagEndOfFrame
			}
			require.NoError(t, acc.Submit(shardOf(9, idx, flags, payloads[idx])))
		}
		require.Len(t, fb.fbs, 1)
		require.Equal(t, uint64(9), fb.fbs[0].FrameIndex)

		var assembled []byte
		for _, p := range dec.pushes {
			for _, span := range p.spans {
				assembled = append(assembled, span...)
			}
		}
		require.Equal(t, []byte{0xA0, 0xA1, 0xA2}, assembled)
		require.True(t, dec.pushes[len(dec.pushes)-1].partial == false)
	}
}
