// Package quic carries end-to-end encrypted packets over QUIC datagrams.
//
// The QUIC layer only secures the hop to the next relay; payloads stay sealed
// by the packet cryptor, so a relay terminating the connection still cannot
// read them.
package quic

import (
	"context"
	"net"

	q "github.com/quic-go/quic-go"

	"github.com/confmesh/e2ee/e2ee/packet"
)

type Listener struct {
	inner *q.Listener
}

func Listen(addr string) (*Listener, error) {
	tlsConf, err := NewServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, &q.Config{EnableDatagrams: true})
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln}, nil
}

func (l *Listener) Accept(ctx context.Context) (q.Connection, error) {
	return l.inner.Accept(ctx)
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) Close() error { return l.inner.Close() }

func Dial(ctx context.Context, addr string) (q.Connection, error) {
	tlsConf, err := NewClientTLSConfig()
	if err != nil {
		return nil, err
	}
	return q.DialAddr(ctx, addr, tlsConf, &q.Config{EnableDatagrams: true})
}

// PacketConn sends and receives end-to-end encrypted packets as QUIC
// datagrams through a shared cryptor.
type PacketConn struct {
	conn    q.Connection
	cryptor *packet.Cryptor
}

func NewPacketConn(conn q.Connection, cryptor *packet.Cryptor) *PacketConn {
	return &PacketConn{conn: conn, cryptor: cryptor}
}

// Send seals plaintext under the local participant's key and ships the encoded
// packet as one datagram.
func (pc *PacketConn) Send(participantID string, keyIndex uint8, plaintext []byte) error {
	pkt, err := pc.cryptor.Encrypt(participantID, keyIndex, plaintext)
	if err != nil {
		return err
	}
	return pc.conn.SendDatagram(pkt.Encode())
}

// Receive waits for a datagram and opens it with the sender's keys.
func (pc *PacketConn) Receive(ctx context.Context, participantID string) ([]byte, error) {
	b, err := pc.conn.ReceiveDatagram(ctx)
	if err != nil {
		return nil, err
	}
	pkt, err := packet.DecodePacket(b)
	if err != nil {
		return nil, err
	}
	return pc.cryptor.Decrypt(participantID, pkt)
}
