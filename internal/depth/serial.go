package depth

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/banshee-data/sandtable/internal/monitoring"
)

// Serial framing for low-resolution depth sensors on UART. Each frame is:
//
//	"SBDF" magic (4 bytes), width uint16 LE, height uint16 LE,
//	width*height uint16 LE samples.
//
// The reader resynchronises by scanning for the magic byte-by-byte, so a
// partial frame after open or a glitched byte costs at most one frame.
var serialMagic = [4]byte{'S', 'B', 'D', 'F'}

// maxSerialDim bounds serial frame dimensions; UART bandwidth makes anything
// larger than this implausible and a large bogus header would stall the read
// loop waiting for samples that never come.
const maxSerialDim = 256

// SerialSourceConfig configures the serial camera source.
type SerialSourceConfig struct {
	Port     string // device path, e.g. "/dev/ttyUSB0"
	BaudRate int    // default 921600
	Handler  FrameHandler
}

// SerialSource reads depth frames from a serial port.
type SerialSource struct {
	cfg SerialSourceConfig

	portMu sync.Mutex
	port   serial.Port
}

// NewSerialSource creates a serial camera source with defaults applied.
func NewSerialSource(cfg SerialSourceConfig) *SerialSource {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 921600
	}
	return &SerialSource{cfg: cfg}
}

// Start opens the port and delivers frames until the context is cancelled or
// the port fails.
func (s *SerialSource) Start(ctx context.Context) error {
	if s.cfg.Handler == nil {
		return ErrNoHandler
	}

	mode := &serial.Mode{
		BaudRate: s.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.cfg.Port, err)
	}
	s.portMu.Lock()
	s.port = port
	s.portMu.Unlock()

	monitoring.Logf("[SerialSource] Reading depth frames from %s at %d baud", s.cfg.Port, s.cfg.BaudRate)

	// Close the port when the context ends to unblock the read loop.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-done:
		}
	}()

	err = decodeSerialStream(port, s.cfg.Handler)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Close closes the serial port, unblocking any in-flight read.
func (s *SerialSource) Close() error {
	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port != nil {
		err := s.port.Close()
		s.port = nil
		return err
	}
	return nil
}

// decodeSerialStream reads frames from r until EOF or a read error. Split out
// from SerialSource so tests can feed it an in-memory stream.
func decodeSerialStream(r io.Reader, handler FrameHandler) error {
	br := bufio.NewReaderSize(r, 1<<16)
	for {
		if err := syncToMagic(br); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var header [4]byte
		if _, err := io.ReadFull(br, header[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		width := int(binary.LittleEndian.Uint16(header[0:2]))
		height := int(binary.LittleEndian.Uint16(header[2:4]))
		if width <= 0 || height <= 0 || width > maxSerialDim || height > maxSerialDim {
			monitoring.Debugf("[SerialSource] Implausible frame header %dx%d, resyncing", width, height)
			continue
		}

		payload := make([]byte, width*height*2)
		if _, err := io.ReadFull(br, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		samples := make([]uint16, width*height)
		for i := range samples {
			samples[i] = binary.LittleEndian.Uint16(payload[i*2:])
		}
		handler(&Frame{Width: width, Height: height, Samples: samples})
	}
}

// syncToMagic consumes bytes until the serial magic has been read.
func syncToMagic(br *bufio.Reader) error {
	matched := 0
	for matched < len(serialMagic) {
		b, err := br.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case b == serialMagic[matched]:
			matched++
		case b == serialMagic[0]:
			matched = 1
		default:
			matched = 0
		}
	}
	return nil
}

// EncodeSerialFrame renders a frame in the serial wire format. Used by tests
// and firmware simulators.
func EncodeSerialFrame(f *Frame) []byte {
	buf := make([]byte, 0, 8+len(f.Samples)*2)
	buf = append(buf, serialMagic[:]...)
	var dims [4]byte
	binary.LittleEndian.PutUint16(dims[0:2], uint16(f.Width))
	binary.LittleEndian.PutUint16(dims[2:4], uint16(f.Height))
	buf = append(buf, dims[:]...)
	for _, s := range f.Samples {
		var v [2]byte
		binary.LittleEndian.PutUint16(v[:], s)
		buf = append(buf, v[:]...)
	}
	return buf
}
