// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package transport implements the reliable framed control channel and the
// batched datagram stream channel, grounded on the original implementation's
// common/wivrn_sockets.h TCP/UDP/typed_socket design.
package transport

import "errors"

var (
	// ErrConnectionLost covers syscall failure or unexpected EOF.
	ErrConnectionLost = errors.New("transport: connection lost")
	// ErrShortRead is returned when a framed read encounters a truncated stream.
	ErrShortRead = errors.New("transport: short read on framed stream")
	// ErrFramingViolation is returned for a zero-length frame prefix.
	ErrFramingViolation = errors.New("transport: length==0 is a protocol violation")
	// ErrShortDatagram is returned when a received datagram is too short
	// to contain the 8-byte counter prefix spec.md section 6 requires.
	ErrShortDatagram = errors.New("transport: datagram shorter than counter prefix")
	// ErrReplayed is returned by SecureDatagramConn.DecodeSecure when the
	// counter is a duplicate or too far behind the sliding window.
	ErrReplayed = errors.New("transport: replayed or out-of-window datagram")
)
