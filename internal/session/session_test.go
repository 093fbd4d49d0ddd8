// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package session

import (
	"log/slog"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wivrn-project/wivrnd/internal/codecbitstream"
	"github.com/wivrn-project/wivrnd/internal/transport"
	"github.com/wivrn-project/wivrnd/internal/wire"
	"github.com/wivrn-project/wivrnd/internal/wivrncrypto"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestSecurePair mirrors internal/transport's own securedatagram_test.go
// helper: a loopback UDP pair keyed for opposite directions, suitable for
// driving a Session's datagram channel end to end.
func newTestSecurePair(t *testing.T) (*transport.SecureDatagramConn, *transport.SecureDatagramConn) {
	t.Helper()

	key := make([]byte, wivrncrypto.CipherKeySize)
	prefixA := make([]byte, wivrncrypto.DatagramIVPrefixSize)
	prefixB := make([]byte, wivrncrypto.DatagramIVPrefixSize)
	prefixB[0] = 1

	server, err := transport.NewDatagramConn("127.0.0.1", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	client, err := transport.DialDatagramConn(server.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	serverDial, err := transport.DialDatagramConn(client.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverDial.Close() })

	serverToClient, err := wivrncrypto.NewDatagramCipher(key, prefixA)
	require.NoError(t, err)
	clientFromServer, err := wivrncrypto.NewDatagramCipher(key, prefixA)
	require.NoError(t, err)

	clientToServer, err := wivrncrypto.NewDatagramCipher(key, prefixB)
	require.NoError(t, err)
	serverFromClient, err := wivrncrypto.NewDatagramCipher(key, prefixB)
	require.NoError(t, err)

	serverSecure := transport.NewSecureDatagramConn(serverDial, serverToClient, serverFromClient)
	clientSecure := transport.NewSecureDatagramConn(client, clientToServer, clientFromServer)
	return serverSecure, clientSecure
}

func newTestSession(t *testing.T) (*Session, net.Conn, *transport.SecureDatagramConn) {
	t.Helper()
	reliableServer, reliableClient := net.Pipe()
	t.Cleanup(func() { _ = reliableClient.Close() })

	datagramServer, datagramClient := newTestSecurePair(t)

	s := New(transport.NewReliableConn(reliableServer), datagramServer, nil, nil, nil, discardLogger())
	return s, reliableClient, datagramClient
}

func TestSession_AnnounceStream_SendsVideoStreamDescription(t *testing.T) {
	s, reliableClient, _ := newTestSession(t)

	var wg sync.WaitGroup
	wg.Add(1)
	var got *wire.VideoStreamDescription
	go func() {
		defer wg.Done()
		rc := transport.NewReliableConn(reliableClient)
		payload, err := rc.Receive()
		require.NoError(t, err)
		msg, err := wire.DecodeToHeadset(wire.NewReader(payload))
		require.NoError(t, err)
		desc, ok := msg.(*wire.VideoStreamDescription)
		require.True(t, ok)
		got = desc
	}()

	require.NoError(t, s.AnnounceStream(0, codecbitstream.CodecH264, 1920, 1080))
	wg.Wait()

	require.NotNil(t, got)
	require.Equal(t, uint8(0), got.StreamIndex)
	require.Equal(t, uint32(1920), got.Width)
	require.Equal(t, uint32(1080), got.Height)
}

func TestSession_SubmitFrame_RejectsUnannouncedStream(t *testing.T) {
	s, _, _ := newTestSession(t)
	err := s.SubmitFrame(3, 1, []byte{0, 0, 0, 1, 0x65, 0xAB}, nil, nil)
	require.ErrorIs(t, err, ErrUnknownStream)
}

func TestSession_SubmitFrame_SendsShardsOverDatagramChannel(t *testing.T) {
	s, reliableClient, datagramClient := newTestSession(t)

	go func() {
		rc := transport.NewReliableConn(reliableClient)
		_, _ = rc.Receive()
	}()
	require.NoError(t, s.AnnounceStream(1, codecbitstream.CodecH264, 640, 480))

	idr := append([]byte{0x65}, make([]byte, 16)...)
	bitstream := append([]byte{0, 0, 0, 1}, idr...)
	require.NoError(t, s.SubmitFrame(1, 9, bitstream, &wire.ViewInfo{}, &wire.TimingInfo{}))

	batch, err := datagramClient.ReceiveBatch()
	require.NoError(t, err)
	require.Len(t, batch, 1)

	payload, err := datagramClient.DecodeSecure(batch[0].Payload)
	require.NoError(t, err)
	msg, err := wire.DecodeToHeadset(wire.NewReader(payload))
	require.NoError(t, err)
	sds, ok := msg.(*wire.VideoStreamDataShard)
	require.True(t, ok)
	require.Equal(t, uint8(1), sds.StreamIndex)
	require.Equal(t, uint64(9), sds.FrameIndex)
}

func TestSession_SendAudio_RejectsAfterClose(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.stopping.Store(true)
	err := s.SendAudio(0, []byte("pcm"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestSession_HandleStreamDatagram_DispatchesTrackingAndUpdatesTimebase(t *testing.T) {
	s, _, datagramClient := newTestSession(t)

	tr := &wire.Tracking{DisplayTime: 1000}
	w := wire.NewWriter(nil)
	wire.Encode(w, tr)
	require.NoError(t, datagramClient.SendSecure(w.Bytes()))

	batch, err := s.datagram.ReceiveBatch()
	require.NoError(t, err)
	require.Len(t, batch, 1)

	s.handleStreamDatagram(batch[0].Payload)
	require.NotZero(t, s.timebase.Offset())
}

func TestSession_HandleStreamDatagram_IgnoresMalformedPayload(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.handleStreamDatagram([]byte{0xFF})
}

func TestSession_CoalesceFeedback_DropsRepeatedFrameIndex(t *testing.T) {
	s, _, _ := newTestSession(t)
	fb := &wire.Feedback{StreamIndex: 0, FrameIndex: 5}
	require.True(t, s.coalesceFeedback(fb))
	require.False(t, s.coalesceFeedback(fb))
	fb2 := &wire.Feedback{StreamIndex: 0, FrameIndex: 6}
	require.True(t, s.coalesceFeedback(fb2))
}
