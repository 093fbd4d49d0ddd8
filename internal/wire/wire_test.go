// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func roundtripFromHeadset(t *testing.T, m Message) Message {
	t.Helper()
	w := NewWriter(nil)
	Encode(w, m)
	r := NewReader(w.Bytes())
	got, err := DecodeFromHeadset(r)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())
	return got
}

func roundtripToHeadset(t *testing.T, m Message) Message {
	t.Helper()
	w := NewWriter(nil)
	Encode(w, m)
	r := NewReader(w.Bytes())
	got, err := DecodeToHeadset(r)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())
	return got
}

func TestClientAnnounce_Roundtrip(t *testing.T) {
	in := &ClientAnnounce{ProtocolVersion: 0xdeadbeefcafef00d, ClientVersion: "1.2.3"}
	out := roundtripFromHeadset(t, in)
	require.Equal(t, in, out)
}

func TestFeedback_Roundtrip(t *testing.T) {
	in := &Feedback{
		FrameIndex:            42,
		StreamIndex:           1,
		ReceivedFirstPacketNs: 100,
		ReceivedLastPacketNs:  200,
		SentToDecoderNs:       250,
		ReceivedFromDecoderNs: 300,
		BlittedNs:             350,
		DisplayedNs:           400,
		RealPose: [2]Pose{
			{PosX: 1, OrientW: 1},
			{PosX: -1, OrientW: 1},
		},
		EncodeBeginNs: 10,
		EncodeEndNs:   20,
		SendBeginNs:   30,
		SendEndNs:     40,
	}
	out := roundtripFromHeadset(t, in)
	require.Equal(t, in, out)
}

func TestVideoStreamDataShard_Roundtrip_WithOptionals(t *testing.T) {
	in := &VideoStreamDataShard{
		StreamIndex: 0,
		FrameIndex:  7,
		ShardIndex:  3,
		Flags:       FlagEndOfFrame,
		ViewInfo: &ViewInfo{
			DisplayTime: 5 * time.Millisecond,
		},
		TimingInfo: &TimingInfo{
			EncodeBegin: time.Second,
			EncodeEnd:   2 * time.Second,
		},
		Payload: []byte{0xAA, 0xBB, 0xCC},
	}
	out := roundtripToHeadset(t, in)
	require.Equal(t, in, out)
}

func TestVideoStreamDataShard_Roundtrip_WithoutOptionals(t *testing.T) {
	in := &VideoStreamDataShard{
		StreamIndex: 2,
		FrameIndex:  99,
		ShardIndex:  0,
		Flags:       0,
		Payload:     []byte{},
	}
	out := roundtripToHeadset(t, in)
	require.Equal(t, in, out)
}

func TestHandTracking_Roundtrip(t *testing.T) {
	in := &HandTracking{DisplayTime: time.Second}
	in.Hands[0].Valid = true
	in.Hands[0].WristPos = [3]float32{1, 2, 3}
	in.Hands[0].WristRotQuant = [3]uint8{10, 20, 30}
	in.Hands[0].Dof = []byte{1, 2, 3, 4, 5}
	out := roundtripFromHeadset(t, in)
	require.Equal(t, in, out)
}

func TestDeserializationError_ShortBuffer(t *testing.T) {
	r := NewReader([]byte{tagFromHeadsetClientAnnounce})
	_, err := DecodeFromHeadset(r)
	require.Error(t, err)
}

func TestDeserializationError_BadVariantTag(t *testing.T) {
	r := NewReader([]byte{0xFF})
	_, err := DecodeFromHeadset(r)
	require.ErrorIs(t, err, ErrBadVariantTag)
}

func TestTypeHash_StableAcrossCalls(t *testing.T) {
	a := TypeHash()
	b := TypeHash()
	require.Equal(t, a, b)
	require.NotZero(t, a)
}

func TestTypeHash_ChangesWithDeclaration(t *testing.T) {
	h1 := NewTypeHasher()
	h1.WriteString(structOf(typeUint8, typeUint16))
	h2 := NewTypeHasher()
	h2.WriteString(structOf(typeUint8, typeUint32))
	require.NotEqual(t, h1.Sum(), h2.Sum())
}

func TestReliableFrameLengthZeroIsInvalid(t *testing.T) {
	// length==0 is a protocol violation per spec.md section 3; verified at
	// the transport layer (see internal/transport), this only asserts the
	// wire package never itself produces a zero-length encode for a
	// zero-field message such as HandshakeComplete -- it still has a tag.
	w := NewWriter(nil)
	Encode(w, &HandshakeComplete{})
	require.NotEqual(t, 0, len(w.Bytes()))
}
