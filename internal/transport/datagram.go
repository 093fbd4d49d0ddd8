// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package transport

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv6"
)

const (
	// DatagramSlotSize matches the original's 2048-byte recvmmsg slot size.
	DatagramSlotSize = 2048
	// DatagramBatchSize matches the original's 20-slot recvmmsg pool.
	DatagramBatchSize = 20

	// minReceiveBuffer is the ≥5 MiB socket buffer spec.md section 4.B asks
	// for to survive bursts.
	minReceiveBuffer = 5 * 1024 * 1024
)

// DatagramConn is the stream channel: a dual-stack IPv6 UDP socket read in
// batches via golang.org/x/net/ipv6's ReadBatch, the idiomatic Go substitute
// for recvmmsg (spec.md section 4.B) -- golang.org/x/net was already an
// indirect dependency of the teacher repo via its HTTP stack, promoted here
// to a direct dependency for this purpose.
type DatagramConn struct {
	udp    *net.UDPConn
	pc     *ipv6.PacketConn
	slots  [][]byte
	msgs   []ipv6.Message
}

// NewDatagramConn binds a dual-stack UDP socket on the given address
// ("" binds all interfaces) and port.
func NewDatagramConn(addr string, port int) (*DatagramConn, error) {
	udpAddr := &net.UDPAddr{IP: net.ParseIP(addr), Port: port}
	udp, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen udp: %w", err)
	}
	return newDatagramConnFromUDP(udp)
}

func newDatagramConnFromUDP(udp *net.UDPConn) (*DatagramConn, error) {
	if err := udp.SetReadBuffer(minReceiveBuffer); err != nil {
		// Not fatal: some platforms cap this silently. The error is ignored.
		_ = err
	}
	if err := udp.SetWriteBuffer(minReceiveBuffer); err != nil {
		_ = err
	}

	pc := ipv6.NewPacketConn(udp)

	slots := make([][]byte, DatagramBatchSize)
	msgs := make([]ipv6.Message, DatagramBatchSize)
	for i := range slots {
		slots[i] = make([]byte, DatagramSlotSize)
		msgs[i].Buffers = [][]byte{slots[i]}
	}

	return &DatagramConn{udp: udp, pc: pc, slots: slots, msgs: msgs}, nil
}

// DialDatagramConn connects a UDP socket to a remote peer (client side /
// outbound session use), so Send can omit a destination address.
func DialDatagramConn(raddr string) (*DatagramConn, error) {
	addr, err := net.ResolveUDPAddr("udp", raddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve udp addr: %w", err)
	}
	udp, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial udp: %w", err)
	}
	return newDatagramConnFromUDP(udp)
}

// Datagram is one received payload plus its source address.
type Datagram struct {
	Payload []byte
	Src     net.Addr
}

// ReceiveBatch reads up to DatagramBatchSize datagrams in a single syscall
// and returns their payloads. Falls back to a single ReadFrom when the
// platform's ReadBatch is unavailable (e.g. non-Linux), since x/net/ipv6
// reports ipv6.ErrNoSupport in that case.
func (d *DatagramConn) ReceiveBatch() ([]Datagram, error) {
	n, err := d.pc.ReadBatch(d.msgs[:], 0)
	if err != nil {
		return d.receiveSingleFallback()
	}
	out := make([]Datagram, 0, n)
	for i := 0; i < n; i++ {
		m := d.msgs[i]
		payload := make([]byte, m.N)
		copy(payload, d.slots[i][:m.N])
		out = append(out, Datagram{Payload: payload, Src: m.Addr})
	}
	return out, nil
}

func (d *DatagramConn) receiveSingleFallback() ([]Datagram, error) {
	buf := make([]byte, DatagramSlotSize)
	n, addr, err := d.udp.ReadFrom(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return []Datagram{{Payload: buf[:n], Src: addr}}, nil
}

// Send writes one datagram to addr. Sends are never serialized with each
// other: each is atomic at the OS level (spec.md section 5).
func (d *DatagramConn) Send(payload []byte, addr net.Addr) error {
	_, err := d.udp.WriteTo(payload, addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return nil
}

// SendTo writes one datagram on a connected socket (no destination needed).
func (d *DatagramConn) SendTo(payload []byte) error {
	_, err := d.udp.Write(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return nil
}

// Close closes the underlying socket.
func (d *DatagramConn) Close() error {
	return d.udp.Close()
}

// LocalAddr returns the bound local address.
func (d *DatagramConn) LocalAddr() net.Addr {
	return d.udp.LocalAddr()
}
