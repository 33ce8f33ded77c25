// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"audiopipe/internal/analysis"
	applog "audiopipe/internal/log"
)

// udpMagic identifies an audiopipe feature packet, followed by a one
// byte format version.
var udpMagic = [4]byte{'A', 'P', 'F', 1}

// UDPTransport sends each feature record as one compact binary datagram:
//
//	magic[4] seq:u32 timestamp:u64
//	rms:f32 zcr:f32 centroid:f32 dominant:f32 flux:f32 confidence:f32
//	tempo:f32 (0 when absent)
//	bins:u16 bin[bins]:f32
//
// All fields are big-endian. Packets are fire-and-forget; UDP loss is
// acceptable for a feature stream that refreshes every chunk.
type UDPTransport struct {
	conn *net.UDPConn

	mu     sync.Mutex // guards seq and the packet buffer
	seq    uint32
	packet *bytes.Buffer
}

// NewUDPTransport dials the target address ("host:port").
func NewUDPTransport(target string) (*UDPTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve UDP target %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial UDP target %q: %w", target, err)
	}

	applog.Infof("Transport: UDP feature packets to %s", target)
	return &UDPTransport{
		conn:   conn,
		packet: new(bytes.Buffer),
	}, nil
}

// Send packs and transmits one StreamingFeatures record. Records of any
// other type are rejected.
func (t *UDPTransport) Send(data any) error {
	features, ok := data.(analysis.StreamingFeatures)
	if !ok {
		return fmt.Errorf("UDP transport cannot encode %T", data)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.packet.Reset()
	t.packet.Write(udpMagic[:])
	binary.Write(t.packet, binary.BigEndian, t.seq)
	binary.Write(t.packet, binary.BigEndian, features.Timestamp)

	scalars := []float32{
		float32(features.RMSEnergy),
		float32(features.ZeroCrossingRate),
		float32(features.SpectralCentroid),
		float32(features.DominantFreq),
		float32(features.SpectralFlux),
		float32(features.BeatConfidence),
	}
	binary.Write(t.packet, binary.BigEndian, scalars)

	var tempo float32
	if features.TempoBPM != nil {
		tempo = float32(*features.TempoBPM)
	}
	binary.Write(t.packet, binary.BigEndian, tempo)

	binary.Write(t.packet, binary.BigEndian, uint16(len(features.Spectrum)))
	for _, m := range features.Spectrum {
		binary.Write(t.packet, binary.BigEndian, float32(m))
	}

	t.seq++

	if _, err := t.conn.Write(t.packet.Bytes()); err != nil {
		return fmt.Errorf("send feature packet: %w", err)
	}
	return nil
}

// Close closes the socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

var _ Transport = (*UDPTransport)(nil)
