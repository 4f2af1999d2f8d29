package depth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
)

// Wire format for depth frames carried over UDP. A frame is split into row
// packets so each datagram stays under a typical MTU:
//
//	offset  size  field
//	0       4     magic 0x53424450 ("SBDP")
//	4       4     frame sequence number
//	8       2     frame width (samples per row)
//	10      2     frame height (rows)
//	12      2     first row carried by this packet
//	14      2     number of rows carried
//	16      n     row samples, little-endian uint16, rowCount*width values
//
// All multi-byte fields are little-endian.
const (
	packetMagic  = 0x53424450
	headerSize   = 16
	maxFrameDim  = 4096
	targetPacket = 1400 // payload budget per datagram, fits common MTUs
)

var (
	// ErrNoHandler indicates a source was started without a frame handler.
	ErrNoHandler = errors.New("depth: no frame handler configured")
	// ErrShortPacket indicates a packet smaller than the fixed header.
	ErrShortPacket = errors.New("depth: packet shorter than header")
	// ErrBadMagic indicates a packet that is not a depth frame packet.
	ErrBadMagic = errors.New("depth: bad packet magic")
)

// Packet is one parsed row packet of a depth frame.
type Packet struct {
	Seq      uint32
	Width    int
	Height   int
	RowStart int
	RowCount int
	Samples  []uint16 // RowCount*Width values
}

// rowsPerPacket chooses how many rows fit in the datagram budget. Always at
// least one row, even for very wide frames.
func rowsPerPacket(width int) int {
	rows := (targetPacket - headerSize) / (width * 2)
	if rows < 1 {
		rows = 1
	}
	return rows
}

// EncodeFramePackets splits a frame into wire packets under the given
// sequence number. Returns nil for frames with no payload.
func EncodeFramePackets(f *Frame, seq uint32) [][]byte {
	if f == nil || !f.Complete() {
		return nil
	}
	step := rowsPerPacket(f.Width)
	packets := make([][]byte, 0, (f.Height+step-1)/step)

	for row := 0; row < f.Height; row += step {
		count := step
		if row+count > f.Height {
			count = f.Height - row
		}
		buf := make([]byte, headerSize+count*f.Width*2)
		binary.LittleEndian.PutUint32(buf[0:4], packetMagic)
		binary.LittleEndian.PutUint32(buf[4:8], seq)
		binary.LittleEndian.PutUint16(buf[8:10], uint16(f.Width))
		binary.LittleEndian.PutUint16(buf[10:12], uint16(f.Height))
		binary.LittleEndian.PutUint16(buf[12:14], uint16(row))
		binary.LittleEndian.PutUint16(buf[14:16], uint16(count))

		payload := buf[headerSize:]
		base := row * f.Width
		for i := 0; i < count*f.Width; i++ {
			binary.LittleEndian.PutUint16(payload[i*2:], f.Samples[base+i])
		}
		packets = append(packets, buf)
	}
	return packets
}

// ParsePacket validates and decodes a single wire packet.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, ErrShortPacket
	}
	if binary.LittleEndian.Uint32(b[0:4]) != packetMagic {
		return Packet{}, ErrBadMagic
	}

	p := Packet{
		Seq:      binary.LittleEndian.Uint32(b[4:8]),
		Width:    int(binary.LittleEndian.Uint16(b[8:10])),
		Height:   int(binary.LittleEndian.Uint16(b[10:12])),
		RowStart: int(binary.LittleEndian.Uint16(b[12:14])),
		RowCount: int(binary.LittleEndian.Uint16(b[14:16])),
	}
	if p.Width <= 0 || p.Height <= 0 || p.Width > maxFrameDim || p.Height > maxFrameDim {
		return Packet{}, fmt.Errorf("depth: implausible frame dimensions %dx%d", p.Width, p.Height)
	}
	if p.RowCount <= 0 || p.RowStart+p.RowCount > p.Height {
		return Packet{}, fmt.Errorf("depth: row range %d+%d outside frame height %d",
			p.RowStart, p.RowCount, p.Height)
	}
	want := p.RowCount * p.Width * 2
	if len(b)-headerSize != want {
		return Packet{}, fmt.Errorf("depth: payload is %d bytes, want %d", len(b)-headerSize, want)
	}

	p.Samples = make([]uint16, p.RowCount*p.Width)
	payload := b[headerSize:]
	for i := range p.Samples {
		p.Samples[i] = binary.LittleEndian.Uint16(payload[i*2:])
	}
	return p, nil
}

// AssemblerStats counts frame assembly outcomes.
type AssemblerStats struct {
	Completed         uint64 `json:"completed"`
	DroppedIncomplete uint64 `json:"dropped_incomplete"`
}

// FrameAssembler rebuilds complete frames from row packets. Packets may
// arrive out of order within a frame; a sequence change finalises the frame
// in progress, dropping it if rows are missing. Only complete frames reach
// the handler, so downstream code never sees a short sample payload.
//
// The assembler is driven from a single receive goroutine; only the stats
// counters are shared (read by the stats logger) and those are atomic.
type FrameAssembler struct {
	handler FrameHandler

	seq      uint32
	width    int
	height   int
	samples  []uint16
	rowsSeen []bool
	rowsLeft int
	active   bool

	completed         atomic.Uint64
	droppedIncomplete atomic.Uint64
}

// NewFrameAssembler creates an assembler delivering completed frames to the
// handler.
func NewFrameAssembler(handler FrameHandler) *FrameAssembler {
	return &FrameAssembler{handler: handler}
}

// AddPacket folds one packet into the frame under assembly.
func (a *FrameAssembler) AddPacket(p Packet) {
	if a.active && (p.Seq != a.seq || p.Width != a.width || p.Height != a.height) {
		// New frame started before the old one completed: the missing rows
		// are gone (UDP loss), discard and move on.
		a.droppedIncomplete.Add(1)
		a.active = false
	}
	if !a.active {
		a.seq = p.Seq
		a.width = p.Width
		a.height = p.Height
		a.samples = make([]uint16, p.Width*p.Height)
		a.rowsSeen = make([]bool, p.Height)
		a.rowsLeft = p.Height
		a.active = true
	}

	for r := 0; r < p.RowCount; r++ {
		row := p.RowStart + r
		if a.rowsSeen[row] {
			continue // duplicate packet
		}
		copy(a.samples[row*a.width:(row+1)*a.width], p.Samples[r*p.Width:(r+1)*p.Width])
		a.rowsSeen[row] = true
		a.rowsLeft--
	}

	if a.rowsLeft == 0 {
		frame := &Frame{Width: a.width, Height: a.height, Samples: a.samples}
		a.active = false
		a.samples = nil
		a.completed.Add(1)
		if a.handler != nil {
			a.handler(frame)
		}
	}
}

// Stats returns a snapshot of the assembly counters. Safe to call
// concurrently with AddPacket.
func (a *FrameAssembler) Stats() AssemblerStats {
	return AssemblerStats{
		Completed:         a.completed.Load(),
		DroppedIncomplete: a.droppedIncomplete.Load(),
	}
}
