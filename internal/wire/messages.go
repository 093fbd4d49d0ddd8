// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wire

import "time"

// Message is implemented by every concrete variant of the two top-level
// tagged unions. The tag is the variant's index in declaration order,
// matching spec.md section 3's "variant tag is a single byte" rule.
type Message interface {
	VariantTag() uint8
	Marshal(w *Writer)
	Unmarshal(r *Reader) error
}

// Pose is a rigid-body position and orientation.
type Pose struct {
	PosX, PosY, PosZ             float32
	OrientW, OrientX, OrientY, OrientZ float32
}

func (p *Pose) marshal(w *Writer) {
	w.WriteF32(p.PosX)
	w.WriteF32(p.PosY)
	w.WriteF32(p.PosZ)
	w.WriteF32(p.OrientW)
	w.WriteF32(p.OrientX)
	w.WriteF32(p.OrientY)
	w.WriteF32(p.OrientZ)
}

func (p *Pose) unmarshal(r *Reader) (err error) {
	if p.PosX, err = r.ReadF32(); err != nil {
		return err
	}
	if p.PosY, err = r.ReadF32(); err != nil {
		return err
	}
	if p.PosZ, err = r.ReadF32(); err != nil {
		return err
	}
	if p.OrientW, err = r.ReadF32(); err != nil {
		return err
	}
	if p.OrientX, err = r.ReadF32(); err != nil {
		return err
	}
	if p.OrientY, err = r.ReadF32(); err != nil {
		return err
	}
	if p.OrientZ, err = r.ReadF32(); err != nil {
		return err
	}
	return nil
}

const poseTypeName = "structure{float32,float32,float32,float32,float32,float32,float32}"

// FOV is the four half-angles (radians) describing a view frustum.
type FOV struct {
	Left, Right, Up, Down float32
}

func (f *FOV) marshal(w *Writer) {
	w.WriteF32(f.Left)
	w.WriteF32(f.Right)
	w.WriteF32(f.Up)
	w.WriteF32(f.Down)
}

func (f *FOV) unmarshal(r *Reader) (err error) {
	if f.Left, err = r.ReadF32(); err != nil {
		return err
	}
	if f.Right, err = r.ReadF32(); err != nil {
		return err
	}
	if f.Up, err = r.ReadF32(); err != nil {
		return err
	}
	if f.Down, err = r.ReadF32(); err != nil {
		return err
	}
	return nil
}

const fovTypeName = "structure{float32,float32,float32,float32}"

// ViewInfo is the per-eye pose/FOV/display-time payload carried on a video
// stream's first shard (spec.md section 3, "Entity: Video shard").
type ViewInfo struct {
	Pose        [2]Pose
	Fov         [2]FOV
	DisplayTime time.Duration
}

func (v *ViewInfo) marshal(w *Writer) {
	v.Pose[0].marshal(w)
	v.Pose[1].marshal(w)
	v.Fov[0].marshal(w)
	v.Fov[1].marshal(w)
	w.WriteDuration(v.DisplayTime)
}

func (v *ViewInfo) unmarshal(r *Reader) error {
	if err := v.Pose[0].unmarshal(r); err != nil {
		return err
	}
	if err := v.Pose[1].unmarshal(r); err != nil {
		return err
	}
	if err := v.Fov[0].unmarshal(r); err != nil {
		return err
	}
	if err := v.Fov[1].unmarshal(r); err != nil {
		return err
	}
	dt, err := r.ReadDuration()
	if err != nil {
		return err
	}
	v.DisplayTime = dt
	return nil
}

var viewInfoTypeName = structOf(
	arrayOf(poseTypeName, 2),
	arrayOf(fovTypeName, 2),
	durationOf(typeInt64, 1, 1000000000),
)

// TimingInfo is the encoder/send timestamp quadruple carried on a video
// stream's last shard.
type TimingInfo struct {
	EncodeBegin, EncodeEnd time.Duration
	SendBegin, SendEnd     time.Duration
}

func (t *TimingInfo) marshal(w *Writer) {
	w.WriteDuration(t.EncodeBegin)
	w.WriteDuration(t.EncodeEnd)
	w.WriteDuration(t.SendBegin)
	w.WriteDuration(t.SendEnd)
}

func (t *TimingInfo) unmarshal(r *Reader) (err error) {
	if t.EncodeBegin, err = r.ReadDuration(); err != nil {
		return err
	}
	if t.EncodeEnd, err = r.ReadDuration(); err != nil {
		return err
	}
	if t.SendBegin, err = r.ReadDuration(); err != nil {
		return err
	}
	if t.SendEnd, err = r.ReadDuration(); err != nil {
		return err
	}
	return nil
}

var timingInfoTypeName = structOf(
	durationOf(typeInt64, 1, 1000000000),
	durationOf(typeInt64, 1, 1000000000),
	durationOf(typeInt64, 1, 1000000000),
	durationOf(typeInt64, 1, 1000000000),
)

// Shard flag bits, per spec.md section 6.
const (
	FlagStartOfSlice uint8 = 1 << 0
	FlagEndOfSlice   uint8 = 1 << 1
	FlagEndOfFrame   uint8 = 1 << 2
)

// VideoStreamDataShard is the wire layout from spec.md section 6, verbatim.
type VideoStreamDataShard struct {
	StreamIndex uint8
	FrameIndex  uint64
	ShardIndex  uint16
	Flags       uint8
	ViewInfo    *ViewInfo
	TimingInfo  *TimingInfo
	Payload     []byte
}

// MaxShardPayload is the datagram-safe upper bound from spec.md section 3.
const MaxShardPayload = 1200

func (s *VideoStreamDataShard) VariantTag() uint8 { return tagToHeadsetVideoStreamDataShard }

func (s *VideoStreamDataShard) Marshal(w *Writer) {
	w.WriteU8(s.StreamIndex)
	w.WriteU64(s.FrameIndex)
	w.WriteU16(s.ShardIndex)
	w.WriteU8(s.Flags)
	w.WriteBool(s.ViewInfo != nil)
	if s.ViewInfo != nil {
		s.ViewInfo.marshal(w)
	}
	w.WriteBool(s.TimingInfo != nil)
	if s.TimingInfo != nil {
		s.TimingInfo.marshal(w)
	}
	w.WriteBytes(s.Payload)
}

func (s *VideoStreamDataShard) Unmarshal(r *Reader) error {
	var err error
	if s.StreamIndex, err = r.ReadU8(); err != nil {
		return err
	}
	if s.FrameIndex, err = r.ReadU64(); err != nil {
		return err
	}
	if s.ShardIndex, err = r.ReadU16(); err != nil {
		return err
	}
	if s.Flags, err = r.ReadU8(); err != nil {
		return err
	}
	hasView, err := r.ReadBool()
	if err != nil {
		return err
	}
	if hasView {
		s.ViewInfo = &ViewInfo{}
		if err := s.ViewInfo.unmarshal(r); err != nil {
			return err
		}
	}
	hasTiming, err := r.ReadBool()
	if err != nil {
		return err
	}
	if hasTiming {
		s.TimingInfo = &TimingInfo{}
		if err := s.TimingInfo.unmarshal(r); err != nil {
			return err
		}
	}
	if s.Payload, err = r.ReadBytes(); err != nil {
		return err
	}
	return nil
}

var videoStreamDataShardTypeName = structOf(
	typeUint8,
	typeUint64,
	typeUint16,
	typeUint8,
	optionalOf(viewInfoTypeName),
	optionalOf(timingInfoTypeName),
	vectorOf(typeUint8),
)

// Feedback is the headset->server per-frame report, verbatim field set from
// spec.md section 6.
type Feedback struct {
	FrameIndex            uint64
	StreamIndex           uint8
	ReceivedFirstPacketNs int64
	ReceivedLastPacketNs  int64
	SentToDecoderNs       int64
	ReceivedFromDecoderNs int64
	BlittedNs             int64
	DisplayedNs           int64
	RealPose              [2]Pose
	EncodeBeginNs         int64
	EncodeEndNs           int64
	SendBeginNs           int64
	SendEndNs             int64
}

func (f *Feedback) VariantTag() uint8 { return tagFromHeadsetFeedback }

func (f *Feedback) Marshal(w *Writer) {
	w.WriteU64(f.FrameIndex)
	w.WriteU8(f.StreamIndex)
	w.WriteI64(f.ReceivedFirstPacketNs)
	w.WriteI64(f.ReceivedLastPacketNs)
	w.WriteI64(f.SentToDecoderNs)
	w.WriteI64(f.ReceivedFromDecoderNs)
	w.WriteI64(f.BlittedNs)
	w.WriteI64(f.DisplayedNs)
	f.RealPose[0].marshal(w)
	f.RealPose[1].marshal(w)
	w.WriteI64(f.EncodeBeginNs)
	w.WriteI64(f.EncodeEndNs)
	w.WriteI64(f.SendBeginNs)
	w.WriteI64(f.SendEndNs)
}

func (f *Feedback) Unmarshal(r *Reader) error {
	var err error
	if f.FrameIndex, err = r.ReadU64(); err != nil {
		return err
	}
	if f.StreamIndex, err = r.ReadU8(); err != nil {
		return err
	}
	for _, p := range []*int64{
		&f.ReceivedFirstPacketNs, &f.ReceivedLastPacketNs, &f.SentToDecoderNs,
		&f.ReceivedFromDecoderNs, &f.BlittedNs, &f.DisplayedNs,
	} {
		if *p, err = r.ReadI64(); err != nil {
			return err
		}
	}
	if err := f.RealPose[0].unmarshal(r); err != nil {
		return err
	}
	if err := f.RealPose[1].unmarshal(r); err != nil {
		return err
	}
	for _, p := range []*int64{&f.EncodeBeginNs, &f.EncodeEndNs, &f.SendBeginNs, &f.SendEndNs} {
		if *p, err = r.ReadI64(); err != nil {
			return err
		}
	}
	return nil
}

var feedbackTypeName = structOf(
	typeUint64, typeUint8,
	typeInt64, typeInt64, typeInt64, typeInt64, typeInt64, typeInt64,
	arrayOf(poseTypeName, 2),
	typeInt64, typeInt64, typeInt64, typeInt64,
)

// ClientAnnounce is the first control message sent by the headset.
type ClientAnnounce struct {
	ProtocolVersion uint64
	ClientVersion   string
}

func (c *ClientAnnounce) VariantTag() uint8 { return tagFromHeadsetClientAnnounce }

func (c *ClientAnnounce) Marshal(w *Writer) {
	w.WriteU64(c.ProtocolVersion)
	w.WriteString(c.ClientVersion)
}

func (c *ClientAnnounce) Unmarshal(r *Reader) error {
	var err error
	if c.ProtocolVersion, err = r.ReadU64(); err != nil {
		return err
	}
	if c.ClientVersion, err = r.ReadString(); err != nil {
		return err
	}
	return nil
}

var clientAnnounceTypeName = structOf(typeUint64, typeString)

// CryptoHandshake carries opaque pairing/DH ceremony payloads (ephemeral
// public keys, SMP messages) in both directions; the inner encoding is
// owned by internal/handshake and internal/wivrncrypto/smp, not by this
// package, matching spec.md's instruction that the serialization codec
// only guarantees byte-vector transport for opaque blobs.
type CryptoHandshake struct {
	Step    uint8
	Payload []byte
}

func (c *CryptoHandshake) VariantTag() uint8 { return tagFromHeadsetCryptoHandshake }

func (c *CryptoHandshake) Marshal(w *Writer) {
	w.WriteU8(c.Step)
	w.WriteBytes(c.Payload)
}

func (c *CryptoHandshake) Unmarshal(r *Reader) error {
	var err error
	if c.Step, err = r.ReadU8(); err != nil {
		return err
	}
	if c.Payload, err = r.ReadBytes(); err != nil {
		return err
	}
	return nil
}

var cryptoHandshakeTypeName = structOf(typeUint8, vectorOf(typeUint8))

// HandshakeComplete is the sentinel first encrypted message on each channel.
type HandshakeComplete struct{}

func (h *HandshakeComplete) VariantTag() uint8 { return tagHandshakeComplete }
func (h *HandshakeComplete) Marshal(w *Writer) {}
func (h *HandshakeComplete) Unmarshal(r *Reader) error { return nil }

var handshakeCompleteTypeName = structOf()

// Tracking is a single pose/FOV sample pushed upstream at the tracking
// pacer's rate.
type Tracking struct {
	DisplayTime time.Duration
	Views       [2]struct {
		Pose Pose
		Fov  FOV
	}
}

func (t *Tracking) VariantTag() uint8 { return tagFromHeadsetTracking }

func (t *Tracking) Marshal(w *Writer) {
	w.WriteDuration(t.DisplayTime)
	for i := range t.Views {
		t.Views[i].Pose.marshal(w)
		t.Views[i].Fov.marshal(w)
	}
}

func (t *Tracking) Unmarshal(r *Reader) error {
	dt, err := r.ReadDuration()
	if err != nil {
		return err
	}
	t.DisplayTime = dt
	for i := range t.Views {
		if err := t.Views[i].Pose.unmarshal(r); err != nil {
			return err
		}
		if err := t.Views[i].Fov.unmarshal(r); err != nil {
			return err
		}
	}
	return nil
}

var trackingTypeName = structOf(
	durationOf(typeInt64, 1, 1000000000),
	arrayOf(structOf(poseTypeName, fovTypeName), 2),
)

// HandTracking carries the 26-joint kinematic-model encoding described in
// spec.md section 3: per hand, a wrist position, a quantised wrist
// rotation, and a packed degree-of-freedom byte string.
type HandTracking struct {
	DisplayTime time.Duration
	Hands       [2]struct {
		Valid         bool
		WristPos      [3]float32
		WristRotQuant [3]uint8
		Dof           []byte
	}
}

func (h *HandTracking) VariantTag() uint8 { return tagFromHeadsetHandTracking }

func (h *HandTracking) Marshal(w *Writer) {
	w.WriteDuration(h.DisplayTime)
	for i := range h.Hands {
		hand := &h.Hands[i]
		w.WriteBool(hand.Valid)
		if !hand.Valid {
			continue
		}
		w.WriteF32(hand.WristPos[0])
		w.WriteF32(hand.WristPos[1])
		w.WriteF32(hand.WristPos[2])
		w.WriteU8(hand.WristRotQuant[0])
		w.WriteU8(hand.WristRotQuant[1])
		w.WriteU8(hand.WristRotQuant[2])
		w.WriteBytes(hand.Dof)
	}
}

func (h *HandTracking) Unmarshal(r *Reader) error {
	dt, err := r.ReadDuration()
	if err != nil {
		return err
	}
	h.DisplayTime = dt
	for i := range h.Hands {
		hand := &h.Hands[i]
		if hand.Valid, err = r.ReadBool(); err != nil {
			return err
		}
		if !hand.Valid {
			continue
		}
		for j := 0; j < 3; j++ {
			if hand.WristPos[j], err = r.ReadF32(); err != nil {
				return err
			}
		}
		for j := 0; j < 3; j++ {
			if hand.WristRotQuant[j], err = r.ReadU8(); err != nil {
				return err
			}
		}
		if hand.Dof, err = r.ReadBytes(); err != nil {
			return err
		}
	}
	return nil
}

var handTrackingTypeName = structOf(
	durationOf(typeInt64, 1, 1000000000),
	arrayOf(optionalOf(structOf(
		arrayOf(typeFloat32, 3),
		arrayOf(typeUint8, 3),
		vectorOf(typeUint8),
	)), 2),
)

// AudioData carries one PCM frame's worth of opaque samples; the PCM frame
// interface itself belongs to the out-of-scope host audio I/O collaborator
// (spec.md section 1) -- this variant only transports the bytes.
type AudioData struct {
	TimestampNs int64
	Samples     []byte
}

func (a *AudioData) VariantTag() uint8 { return tagFromHeadsetAudioData }

func (a *AudioData) Marshal(w *Writer) {
	w.WriteI64(a.TimestampNs)
	w.WriteBytes(a.Samples)
}

func (a *AudioData) Unmarshal(r *Reader) error {
	var err error
	if a.TimestampNs, err = r.ReadI64(); err != nil {
		return err
	}
	if a.Samples, err = r.ReadBytes(); err != nil {
		return err
	}
	return nil
}

var audioDataTypeName = structOf(typeInt64, vectorOf(typeUint8))

// HeadsetInfo is sent once, describing the headset's display and tracking
// capabilities; fields are intentionally coarse since detailed capability
// negotiation is delegated to the out-of-scope encoder/decoder collaborator.
type HeadsetInfo struct {
	Name          string
	RecommendedEyeWidth  uint32
	RecommendedEyeHeight uint32
	RefreshRatesHz       []float32
}

func (h *HeadsetInfo) VariantTag() uint8 { return tagFromHeadsetHeadsetInfo }

func (h *HeadsetInfo) Marshal(w *Writer) {
	w.WriteString(h.Name)
	w.WriteU32(h.RecommendedEyeWidth)
	w.WriteU32(h.RecommendedEyeHeight)
	w.WriteU16(uint16(len(h.RefreshRatesHz)))
	for _, v := range h.RefreshRatesHz {
		w.WriteF32(v)
	}
}

func (h *HeadsetInfo) Unmarshal(r *Reader) error {
	var err error
	if h.Name, err = r.ReadString(); err != nil {
		return err
	}
	if h.RecommendedEyeWidth, err = r.ReadU32(); err != nil {
		return err
	}
	if h.RecommendedEyeHeight, err = r.ReadU32(); err != nil {
		return err
	}
	n, err := r.ReadU16()
	if err != nil {
		return err
	}
	h.RefreshRatesHz = make([]float32, n)
	for i := range h.RefreshRatesHz {
		if h.RefreshRatesHz[i], err = r.ReadF32(); err != nil {
			return err
		}
	}
	return nil
}

var headsetInfoTypeName = structOf(typeString, typeUint32, typeUint32, vectorOf(typeFloat32))

// VideoStreamDescription announces one video stream's codec and extent
// before any shards for it are sent.
type VideoStreamDescription struct {
	StreamIndex uint8
	Codec       uint8 // 0 = H.264, 1 = H.265
	Width       uint32
	Height      uint32
}

func (v *VideoStreamDescription) VariantTag() uint8 { return tagToHeadsetVideoStreamDescription }

func (v *VideoStreamDescription) Marshal(w *Writer) {
	w.WriteU8(v.StreamIndex)
	w.WriteU8(v.Codec)
	w.WriteU32(v.Width)
	w.WriteU32(v.Height)
}

func (v *VideoStreamDescription) Unmarshal(r *Reader) error {
	var err error
	if v.StreamIndex, err = r.ReadU8(); err != nil {
		return err
	}
	if v.Codec, err = r.ReadU8(); err != nil {
		return err
	}
	if v.Width, err = r.ReadU32(); err != nil {
		return err
	}
	if v.Height, err = r.ReadU32(); err != nil {
		return err
	}
	return nil
}

var videoStreamDescriptionTypeName = structOf(typeUint8, typeUint8, typeUint32, typeUint32)

// SessionKeyExchange carries the server's offer of a new datagram-channel
// key generation (used when rotating stream keys without a full handshake).
type SessionKeyExchange struct {
	Generation uint32
	Payload    []byte
}

func (s *SessionKeyExchange) VariantTag() uint8 { return tagToHeadsetSessionKeyExchange }

func (s *SessionKeyExchange) Marshal(w *Writer) {
	w.WriteU32(s.Generation)
	w.WriteBytes(s.Payload)
}

func (s *SessionKeyExchange) Unmarshal(r *Reader) error {
	var err error
	if s.Generation, err = r.ReadU32(); err != nil {
		return err
	}
	if s.Payload, err = r.ReadBytes(); err != nil {
		return err
	}
	return nil
}

var sessionKeyExchangeTypeName = structOf(typeUint32, vectorOf(typeUint8))

// Variant tags, in declaration order per union (spec.md section 3: "Variant
// tag is a single byte (index in declaration order)").
const (
	tagFromHeadsetClientAnnounce uint8 = iota
	tagFromHeadsetCryptoHandshake
	tagFromHeadsetHeadsetInfo
	tagFromHeadsetTracking
	tagFromHeadsetHandTracking
	tagFromHeadsetFeedback
	tagFromHeadsetAudioData
	tagHandshakeComplete
)

const (
	tagToHeadsetCryptoHandshake uint8 = iota
	tagToHeadsetVideoStreamDescription
	tagToHeadsetVideoStreamDataShard
	tagToHeadsetSessionKeyExchange
	tagToHeadsetAudioData
)

// DecodeFromHeadset reads the one-byte variant tag and dispatches to the
// matching from_headset message type, per spec.md's tagged-union rule.
// Note: the wire rule specifies a u32 discriminant for tagged unions in
// general (section 4.A); the single-byte tag used above is specific to the
// two top-level packet-family unions per section 3.
func DecodeFromHeadset(r *Reader) (Message, error) {
	tag, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	var m Message
	switch tag {
	case tagFromHeadsetClientAnnounce:
		m = &ClientAnnounce{}
	case tagFromHeadsetCryptoHandshake:
		m = &CryptoHandshake{}
	case tagFromHeadsetHeadsetInfo:
		m = &HeadsetInfo{}
	case tagFromHeadsetTracking:
		m = &Tracking{}
	case tagFromHeadsetHandTracking:
		m = &HandTracking{}
	case tagFromHeadsetFeedback:
		m = &Feedback{}
	case tagFromHeadsetAudioData:
		m = &AudioData{}
	case tagHandshakeComplete:
		m = &HandshakeComplete{}
	default:
		return nil, newDeserializationError("from_headset", ErrBadVariantTag)
	}
	if err := m.Unmarshal(r); err != nil {
		return nil, newDeserializationError("from_headset", err)
	}
	return m, nil
}

// DecodeToHeadset is the server-side counterpart of DecodeFromHeadset.
func DecodeToHeadset(r *Reader) (Message, error) {
	tag, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	var m Message
	switch tag {
	case tagToHeadsetCryptoHandshake:
		m = &CryptoHandshake{}
	case tagToHeadsetVideoStreamDescription:
		m = &VideoStreamDescription{}
	case tagToHeadsetVideoStreamDataShard:
		m = &VideoStreamDataShard{}
	case tagToHeadsetSessionKeyExchange:
		m = &SessionKeyExchange{}
	case tagToHeadsetAudioData:
		m = &AudioData{}
	case tagHandshakeComplete:
		m = &HandshakeComplete{}
	default:
		return nil, newDeserializationError("to_headset", ErrBadVariantTag)
	}
	if err := m.Unmarshal(r); err != nil {
		return nil, newDeserializationError("to_headset", err)
	}
	return m, nil
}

// Encode writes a message's variant tag followed by its payload, using the
// tag from VariantTag(). This is correct for every variant that belongs to
// only one union; CryptoHandshake and AudioData belong to both (spec.md
// section 4.D exchanges CryptoHandshake in both directions, section 3 lists
// audio_data in both unions), so callers encoding either one for the
// to_headset union must use EncodeToHeadset instead.
func Encode(w *Writer, m Message) {
	w.WriteU8(m.VariantTag())
	m.Marshal(w)
}

// EncodeToHeadset writes m with its to_headset union tag, which for most
// variants is the same value VariantTag() returns but differs for
// CryptoHandshake and AudioData, the two variants declared in both unions.
func EncodeToHeadset(w *Writer, m Message) {
	switch mm := m.(type) {
	case *CryptoHandshake:
		w.WriteU8(tagToHeadsetCryptoHandshake)
		mm.Marshal(w)
	case *AudioData:
		w.WriteU8(tagToHeadsetAudioData)
		mm.Marshal(w)
	default:
		Encode(w, m)
	}
}

// FromHeadsetTypeHash and ToHeadsetTypeHash are the stable FNV-1a
// fingerprints of the two top-level unions, computed once at init() over
// every reachable type's canonical description (spec.md section 3,
// "Entity: Type-hash"). A mismatch between peers means the wire schemas
// differ and the session must not proceed (section 4.D step 2).
var (
	FromHeadsetTypeHash uint64
	ToHeadsetTypeHash   uint64
)

func init() {
	fh := NewTypeHasher()
	fh.WriteString(variantOf(
		clientAnnounceTypeName,
		cryptoHandshakeTypeName,
		headsetInfoTypeName,
		trackingTypeName,
		handTrackingTypeName,
		feedbackTypeName,
		audioDataTypeName,
		handshakeCompleteTypeName,
	))
	FromHeadsetTypeHash = fh.Sum()

	th := NewTypeHasher()
	th.WriteString(variantOf(
		cryptoHandshakeTypeName,
		videoStreamDescriptionTypeName,
		videoStreamDataShardTypeName,
		sessionKeyExchangeTypeName,
		audioDataTypeName,
	))
	ToHeadsetTypeHash = th.Sum()
}

// TypeHash is the single value exchanged in ClientAnnounce.ProtocolVersion:
// the combination of both union hashes, since a compatible peer must agree
// on both directions of the protocol.
func TypeHash() uint64 {
	h := NewTypeHasher()
	h.WriteString(structOf(
		fmt64(FromHeadsetTypeHash),
		fmt64(ToHeadsetTypeHash),
	))
	return h.Sum()
}

func fmt64(v uint64) string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(b)
}
