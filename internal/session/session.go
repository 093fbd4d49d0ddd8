// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package session owns the runtime for one established headset
// connection, playing the server's role of the protocol: it decodes
// inbound from_headset control and telemetry messages, drives a
// per-stream shard.Splitter to turn encoder output into video shards,
// and sends to_headset control/stream messages back over the encrypted
// channels, grounded on the teacher's internal/dmr/hub.Hub lifecycle
// (stopping atomic.Bool, reverse-order teardown).
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/wivrn-project/wivrnd/internal/codecbitstream"
	"github.com/wivrn-project/wivrnd/internal/metrics"
	"github.com/wivrn-project/wivrnd/internal/pubsub"
	"github.com/wivrn-project/wivrnd/internal/shard"
	"github.com/wivrn-project/wivrnd/internal/timebase"
	"github.com/wivrn-project/wivrnd/internal/transport"
	"github.com/wivrn-project/wivrnd/internal/wire"
)

// ErrClosed is returned by operations attempted after the session has
// begun tearing down.
var ErrClosed = errors.New("session: closed")

// ErrUnknownStream is returned by SubmitFrame for a stream index that
// was never announced via AnnounceStream.
var ErrUnknownStream = errors.New("session: stream not announced")

// telemetryQueueSize bounds the buffered channel drained by the
// telemetry-forwarding goroutine; spec.md section 5 calls for a bounded
// channel as the suspension point, not an unbounded queue.
const telemetryQueueSize = 256

// Session is one headset connection's runtime, alive from handshake
// completion until the reliable channel closes or the context is
// cancelled.
type Session struct {
	ID          string
	DisplayName string

	reliable *transport.ReliableConn
	datagram *transport.SecureDatagramConn
	peerAddr net.Addr
	pubsub   pubsub.PubSub
	metrics  *metrics.Metrics
	log      *slog.Logger

	splitters *xsync.Map[uint8, *shard.Splitter]
	timebase  *timebase.Estimator

	feedbackFrameMu sync.Mutex
	lastFeedbackFrame map[uint8]uint64

	telemetryQueue chan wire.Message
	stopping       atomic.Bool
	cancel         context.CancelFunc
	lastActivity   atomic.Int64
}

// New constructs a Session. peerAddr is the headset's datagram source
// address, recorded for diagnostics; ps may be nil, in which case
// inbound telemetry is simply not fanned out anywhere beyond the
// session's own metrics.
func New(reliable *transport.ReliableConn, datagram *transport.SecureDatagramConn, peerAddr net.Addr, ps pubsub.PubSub, m *metrics.Metrics, log *slog.Logger) *Session {
	s := &Session{
		reliable:          reliable,
		datagram:          datagram,
		peerAddr:          peerAddr,
		pubsub:            ps,
		metrics:           m,
		log:               log,
		splitters:         xsync.NewMap[uint8, *shard.Splitter](),
		timebase:          timebase.New(),
		lastFeedbackFrame: make(map[uint8]uint64),
		telemetryQueue:    make(chan wire.Message, telemetryQueueSize),
	}
	s.touch()
	return s
}

// LastActivity returns the time of the most recent inbound control or
// stream message, used by internal/scheduler to reap idle sessions.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Run blocks, driving the session's goroutine set (control-rx,
// stream-rx, telemetry-tx) until a channel errors, ctx is cancelled, or
// Close is called. It always returns a non-nil error describing why the
// session ended.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	if s.metrics != nil {
		s.metrics.SessionsActive.Inc()
		s.metrics.SessionsStartedTotal.Inc()
		defer s.metrics.SessionsActive.Dec()
	}

	errCh := make(chan error, 3)
	go s.controlRX(ctx, errCh)
	go s.streamRX(ctx, errCh)
	go s.telemetryTX(ctx, errCh)

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	s.teardown(runErr)
	return runErr
}

// Close ends the session from outside its own goroutines, e.g. the idle
// reaper (Registry.ReapIdle) or daemon shutdown.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) teardown(reason error) {
	s.stopping.Store(true)
	close(s.telemetryQueue)
	if err := s.reliable.Close(); err != nil {
		s.log.Debug("reliable channel close error during teardown", "session_id", s.ID, "error", err)
	}
	if err := s.datagram.Close(); err != nil {
		s.log.Debug("datagram channel close error during teardown", "session_id", s.ID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.SessionsTornDownTotal.WithLabelValues(teardownReason(reason)).Inc()
	}
}

func teardownReason(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, transport.ErrConnectionLost):
		return "connection_lost"
	default:
		return "error"
	}
}

// controlRX reads reliable-channel frames sent by the headset and
// dispatches from_headset control-class messages: the one-time
// announce/capability exchange and rekey offers. Tracking, hand
// tracking, feedback, and audio arrive over the datagram channel
// instead (see streamRX).
func (s *Session) controlRX(ctx context.Context, errCh chan<- error) {
	for {
		if ctx.Err() != nil {
			return
		}
		payload, err := s.reliable.Receive()
		if err != nil {
			errCh <- fmt.Errorf("%w: control channel: %w", ErrClosed, err)
			return
		}
		s.touch()
		msg, err := wire.DecodeFromHeadset(wire.NewReader(payload))
		if err != nil {
			s.log.Warn("dropping malformed control message", "session_id", s.ID, "error", err)
			continue
		}
		s.dispatchControl(msg)
	}
}

func (s *Session) dispatchControl(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.ClientAnnounce:
		s.log.Debug("client re-announced mid-session", "session_id", s.ID, "protocol_version", m.ProtocolVersion, "client_version", m.ClientVersion)
	case *wire.CryptoHandshake:
		// A from_headset crypto_handshake arriving here is a
		// datagram-channel rekey offer; internal/handshake owns the
		// cipher derivation, this runtime only logs the event.
		s.log.Debug("rekey handshake step received", "session_id", s.ID, "step", m.Step)
	case *wire.HeadsetInfo:
		s.log.Info("headset capabilities", "session_id", s.ID, "name", m.Name,
			"eye_width", m.RecommendedEyeWidth, "eye_height", m.RecommendedEyeHeight, "refresh_rates", m.RefreshRatesHz)
	case *wire.HandshakeComplete:
		s.log.Debug("duplicate handshake-complete sentinel ignored", "session_id", s.ID)
	default:
		s.log.Debug("unhandled control message", "session_id", s.ID, "type", fmt.Sprintf("%T", m))
	}
}

// streamRX reads batches of datagrams, decrypts and replay-checks each
// one, and dispatches from_headset stream-class messages (tracking,
// hand tracking, feedback, audio).
func (s *Session) streamRX(ctx context.Context, errCh chan<- error) {
	for {
		if ctx.Err() != nil {
			return
		}
		batch, err := s.datagram.ReceiveBatch()
		if err != nil {
			errCh <- fmt.Errorf("%w: stream channel: %w", ErrClosed, err)
			return
		}
		for _, dgram := range batch {
			s.handleStreamDatagram(dgram.Payload)
		}
	}
}

func (s *Session) handleStreamDatagram(raw []byte) {
	payload, err := s.datagram.DecodeSecure(raw)
	if err != nil {
		if s.metrics != nil && errors.Is(err, transport.ErrReplayed) {
			s.metrics.ReplayedDatagramsTotal.Inc()
		}
		s.log.Debug("dropping undecodable stream datagram", "session_id", s.ID, "error", err)
		return
	}
	msg, err := wire.DecodeFromHeadset(wire.NewReader(payload))
	if err != nil {
		s.log.Warn("dropping malformed stream datagram", "session_id", s.ID, "error", err)
		return
	}
	s.touch()

	switch m := msg.(type) {
	case *wire.Tracking:
		s.timebase.Update(m.DisplayTime, monotonicNow())
		if s.metrics != nil {
			s.metrics.TrackingReceivedTotal.Inc()
			s.metrics.TimeOffsetEstimateSeconds.WithLabelValues(s.ID).Set(s.timebase.Offset().Seconds())
		}
		s.enqueueTelemetry(m)
	case *wire.HandTracking:
		s.enqueueTelemetry(m)
	case *wire.Feedback:
		if s.metrics != nil {
			s.metrics.FeedbackReceivedTotal.WithLabelValues(streamIndexLabel(m.StreamIndex)).Inc()
		}
		if s.coalesceFeedback(m) {
			s.enqueueTelemetry(m)
		}
	case *wire.AudioData:
		// Audio capture is an out-of-scope host collaborator (spec.md
		// section 1 Non-goals); the runtime still owns the datagram
		// plumbing for it but has nothing further to do with the bytes.
		s.log.Debug("audio datagram received", "session_id", s.ID, "bytes", len(m.Samples))
	default:
		s.log.Warn("dropping non-stream-class datagram", "session_id", s.ID, "type", fmt.Sprintf("%T", m))
	}
}

// coalesceFeedback reports whether fb is newsworthy enough to forward:
// a repeat of the last frame index already forwarded for its stream is
// dropped rather than republished, per spec.md section 4.F's "coalescing
// duplicate frame indices" requirement on the feedback queue.
func (s *Session) coalesceFeedback(fb *wire.Feedback) bool {
	s.feedbackFrameMu.Lock()
	defer s.feedbackFrameMu.Unlock()
	if last, ok := s.lastFeedbackFrame[fb.StreamIndex]; ok && last == fb.FrameIndex {
		return false
	}
	s.lastFeedbackFrame[fb.StreamIndex] = fb.FrameIndex
	return true
}

// enqueueTelemetry hands msg to the telemetry-tx goroutine, dropping
// the oldest queued message rather than blocking the receive goroutine
// when the queue is full.
func (s *Session) enqueueTelemetry(msg wire.Message) {
	if s.stopping.Load() {
		return
	}
	select {
	case s.telemetryQueue <- msg:
	default:
		select {
		case <-s.telemetryQueue:
		default:
		}
		select {
		case s.telemetryQueue <- msg:
		default:
		}
	}
}

// telemetryTX drains the telemetry queue and publishes each message's
// wire encoding to this session's pubsub topic, where
// internal/httpapi's websocket feed picks it up (spec.md section 4.F).
func (s *Session) telemetryTX(ctx context.Context, errCh chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.telemetryQueue:
			if !ok {
				return
			}
			s.publishTelemetry(msg)
		}
	}
}

func (s *Session) publishTelemetry(msg wire.Message) {
	if s.pubsub == nil {
		return
	}
	w := wire.NewWriter(nil)
	wire.Encode(w, msg)
	if err := s.pubsub.Publish(sessionTelemetryTopic(s.ID), w.Bytes()); err != nil {
		s.log.Debug("publish telemetry failed", "session_id", s.ID, "error", err)
	}
}

func sessionTelemetryTopic(id string) string {
	return fmt.Sprintf("wivrnd:session:%s:telemetry", id)
}

// AnnounceStream sends a video_stream_description to the headset and
// registers a shard.Splitter for streamIndex, which SubmitFrame then
// uses for every subsequent frame on that stream. Must be called once
// per stream before the first SubmitFrame.
func (s *Session) AnnounceStream(streamIndex uint8, codec codecbitstream.Codec, width, height uint32) error {
	if s.stopping.Load() {
		return ErrClosed
	}
	desc := &wire.VideoStreamDescription{
		StreamIndex: streamIndex,
		Codec:       wireCodecOf(codec),
		Width:       width,
		Height:      height,
	}
	if err := s.sendControl(desc); err != nil {
		return err
	}
	s.splitters.Store(streamIndex, shard.NewSplitter(streamIndex, codec))
	return nil
}

func wireCodecOf(codec codecbitstream.Codec) uint8 {
	if codec == codecbitstream.CodecH265 {
		return 1
	}
	return 0
}

// SubmitFrame splits one encoder-produced frame's Annex-B bitstream into
// shards and sends them over the encrypted, replay-protected stream
// channel -- the server-side counterpart of shard.Accumulator.Submit on
// the headset.
func (s *Session) SubmitFrame(streamIndex uint8, frameIndex uint64, bitstream []byte, viewInfo *wire.ViewInfo, timing *wire.TimingInfo) error {
	if s.stopping.Load() {
		return ErrClosed
	}
	sp, ok := s.splitters.Load(streamIndex)
	if !ok {
		return fmt.Errorf("session: submit frame: %w: stream %d", ErrUnknownStream, streamIndex)
	}
	shards, err := sp.Split(frameIndex, bitstream, viewInfo, timing)
	if err != nil {
		return fmt.Errorf("session: split frame: %w", err)
	}
	for _, sds := range shards {
		w := wire.NewWriter(nil)
		wire.EncodeToHeadset(w, sds)
		if err := s.datagram.SendSecure(w.Bytes()); err != nil {
			return fmt.Errorf("%w: stream channel: %w", ErrClosed, err)
		}
	}
	if s.metrics != nil {
		label := streamIndexLabel(streamIndex)
		s.metrics.ShardsSentTotal.WithLabelValues(label).Add(float64(len(shards)))
		s.metrics.FramesSentTotal.WithLabelValues(label).Inc()
	}
	return nil
}

// SendAudio sends one PCM frame's worth of samples to the headset over
// the stream channel. The PCM source itself is an out-of-scope host
// audio I/O collaborator (spec.md section 1); this only transports the
// bytes once that collaborator hands them over.
func (s *Session) SendAudio(timestampNs int64, samples []byte) error {
	if s.stopping.Load() {
		return ErrClosed
	}
	w := wire.NewWriter(nil)
	wire.EncodeToHeadset(w, &wire.AudioData{TimestampNs: timestampNs, Samples: samples})
	if err := s.datagram.SendSecure(w.Bytes()); err != nil {
		return fmt.Errorf("%w: stream channel: %w", ErrClosed, err)
	}
	return nil
}

// sendControl encodes and sends a single to_headset message over the
// reliable channel.
func (s *Session) sendControl(msg wire.Message) error {
	w := wire.NewWriter(nil)
	wire.EncodeToHeadset(w, msg)
	if err := s.reliable.Send(w.Bytes()); err != nil {
		return fmt.Errorf("%w: control channel: %w", ErrClosed, err)
	}
	return nil
}

func streamIndexLabel(idx uint8) string {
	return fmt.Sprintf("%d", idx)
}

func monotonicNow() time.Duration {
	return time.Duration(time.Now().UnixNano())
}
