// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"bandfx/internal/transport"
)

// DefaultInterval is the publishing period used when none is given.
const DefaultInterval = 16 * time.Millisecond

var ErrShortPacket = errors.New("udp: packet too short")

// UDPPublisher implements transport.Transport. Send records the latest
// band frame; a ticker goroutine packs it into the binary layout below
// and sends it whenever it changed since the previous packet.
type UDPPublisher struct {
	sender   *UDPSender    // The underlying UDP sender instance.
	interval time.Duration // The interval at which pending frames are checked.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Signals the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker, doneChan and the pending frame.

	pending transport.BandFrame
	dirty   bool

	sequenceNum uint32

	// Reused on every packet to keep the publishing loop allocation free.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher on top of sender. A non-positive
// interval falls back to DefaultInterval.
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		logger.Warnf("invalid interval %s, defaulting to %s", interval, DefaultInterval)
		interval = DefaultInterval
	}

	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		f32Buffer:    make([]float32, len(transport.BandFrame{}.Bands)),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a
// running publisher is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Captured so the goroutine never reads the fields Stop resets.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logger.Infof("publisher started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.flush()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	logger.Debugf("publisher stopped after %d packets", p.sequenceNum)
	return nil
}

// Send records data as the next frame to publish. Only BandFrame values
// are accepted.
func (p *UDPPublisher) Send(data any) error {
	frame, ok := data.(transport.BandFrame)
	if !ok {
		return fmt.Errorf("UDPPublisher: unsupported payload %T", data)
	}
	p.mu.Lock()
	p.pending = frame
	p.dirty = true
	p.mu.Unlock()
	return nil
}

// Close stops publishing and closes the sender.
func (p *UDPPublisher) Close() error {
	return errors.Join(p.Stop(), p.sender.Close())
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Tick              | uint32         | 4            | Track tick (20 per sec) |
| Band Count        | uint16         | 2            | Number of floats (N)    |
| Intensities       | []float32      | N * 4        | Band intensities 0..1   |
+-----------------------------------------------------------------------------+
*/

const headerSize = 4 + 8 + 4 + 2

// Packet is a decoded publisher datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Tick      uint32
	Bands     []float32
}

func (p *UDPPublisher) flush() {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	frame := p.pending
	p.dirty = false
	p.mu.Unlock()

	for i, v := range frame.Bands {
		p.f32Buffer[i] = float32(v)
	}
	p.sequenceNum++

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, time.Now().UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint32(frame.Tick))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(p.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		logger.Errorf("error packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		logger.Debugf("sent packet %d (tick %d)", p.sequenceNum, frame.Tick)
	}
}

// DecodePacket parses a datagram produced by UDPPublisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	pkt := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:])),
		Tick:      binary.BigEndian.Uint32(b[12:]),
	}
	n := int(binary.BigEndian.Uint16(b[16:]))
	if len(b) < headerSize+n*4 {
		return Packet{}, fmt.Errorf("%w: %d bands declared, %d bytes", ErrShortPacket, n, len(b))
	}
	pkt.Bands = make([]float32, n)
	if err := binary.Read(bytes.NewReader(b[headerSize:]), binary.BigEndian, pkt.Bands); err != nil {
		return Packet{}, err
	}
	return pkt, nil
}

var _ transport.Transport = (*UDPPublisher)(nil)
