package depth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/sandtable/internal/monitoring"
)

// UDPListenerConfig configures the UDP camera source.
type UDPListenerConfig struct {
	Address     string        // listen address, e.g. ":2368"
	RcvBuf      int           // socket receive buffer (default 1 MiB)
	LogInterval time.Duration // stats logging cadence (default 1 minute)
	Handler     FrameHandler
}

// UDPListener receives chunked depth frames over UDP and delivers assembled
// frames to the handler. Cameras (or the simcam tool) transmit frames in the
// parse.go packet format.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	assembler   *FrameAssembler

	connMu sync.Mutex
	conn   *net.UDPConn

	statsMu    sync.Mutex
	packets    uint64
	bytes      uint64
	badPackets uint64
}

// NewUDPListener creates a listener with defaults applied.
func NewUDPListener(cfg UDPListenerConfig) *UDPListener {
	if cfg.RcvBuf <= 0 {
		cfg.RcvBuf = 1 << 20
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = time.Minute
	}
	return &UDPListener{
		address:     cfg.Address,
		rcvBuf:      cfg.RcvBuf,
		logInterval: cfg.LogInterval,
		assembler:   NewFrameAssembler(cfg.Handler),
	}
}

// Start listens for frame packets until the context is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	if l.assembler.handler == nil {
		return ErrNoHandler
	}

	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("[UDPListener] Warning: failed to set receive buffer to %d: %v", l.rcvBuf, err)
	}
	monitoring.Logf("[UDPListener] Listening on %s (rcvbuf %d)", l.address, l.rcvBuf)

	go l.statsLoop(ctx)

	buffer := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("[UDPListener] Stopping: context cancelled")
			return ctx.Err()
		default:
			// Short read deadline so context cancellation is noticed promptly.
			_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, _, err := conn.ReadFromUDP(buffer)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return nil
				}
				monitoring.Logf("[UDPListener] Read error: %v", err)
				continue
			}

			l.handlePacket(buffer[:n])
		}
	}
}

func (l *UDPListener) handlePacket(raw []byte) {
	l.statsMu.Lock()
	l.packets++
	l.bytes += uint64(len(raw))
	l.statsMu.Unlock()

	p, err := ParsePacket(raw)
	if err != nil {
		l.statsMu.Lock()
		l.badPackets++
		l.statsMu.Unlock()
		monitoring.Debugf("[UDPListener] Discarding packet: %v", err)
		return
	}
	l.assembler.AddPacket(p)
}

func (l *UDPListener) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.statsMu.Lock()
			packets, bytes, bad := l.packets, l.bytes, l.badPackets
			l.statsMu.Unlock()
			as := l.assembler.Stats()
			monitoring.Logf("[UDPListener] packets=%d bytes=%d bad=%d frames=%d dropped=%d",
				packets, bytes, bad, as.Completed, as.DroppedIncomplete)
		}
	}
}

// Addr returns the bound local address, or nil before Start. Lets callers
// (and tests) bind to port 0 and discover the assigned port.
func (l *UDPListener) Addr() net.Addr {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Close shuts the socket, unblocking any in-flight read.
func (l *UDPListener) Close() error {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		err := l.conn.Close()
		l.conn = nil
		return err
	}
	return nil
}
