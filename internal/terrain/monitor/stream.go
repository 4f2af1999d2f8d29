package monitor

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/sandtable/internal/monitoring"
	"github.com/banshee-data/sandtable/internal/terrain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // visualiser clients connect from file:// or a dev server
	},
}

// TerrainFrame is one websocket message: the published height grid plus the
// counters a client needs to detect a stalled pipeline.
type TerrainFrame struct {
	Resolution int            `json:"resolution"`
	Heights    []float64      `json:"heights"`
	Status     terrain.Status `json:"status"`
	SentAt     string         `json:"sent_at"`
}

// handleTerrainStream upgrades to a websocket and pushes the published
// height grid at the configured stream interval. The connection closes when
// the client goes away or a write fails; there is no client-to-server
// protocol beyond the close handshake.
func (ws *WebServer) handleTerrainStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("[Monitor] WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ws.registerStream(conn)
	defer ws.unregisterStream(conn)

	monitoring.Logf("[Monitor] Terrain stream client connected: %s", r.RemoteAddr)

	// Drain reads so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(ws.streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			monitoring.Logf("[Monitor] Terrain stream client disconnected: %s", r.RemoteAddr)
			return
		case <-ticker.C:
			res, values := ws.engine.SnapshotHeights()
			if res == 0 {
				continue // nothing published yet
			}
			frame := TerrainFrame{
				Resolution: res,
				Heights:    values,
				Status:     ws.engine.Status(),
				SentAt:     time.Now().UTC().Format(time.RFC3339Nano),
			}
			if err := conn.WriteJSON(frame); err != nil {
				monitoring.Logf("[Monitor] Terrain stream write error (%s): %v", r.RemoteAddr, err)
				return
			}
		}
	}
}

func (ws *WebServer) registerStream(conn *websocket.Conn) {
	ws.streamMu.Lock()
	ws.streams[conn] = struct{}{}
	ws.streamMu.Unlock()
}

func (ws *WebServer) unregisterStream(conn *websocket.Conn) {
	ws.streamMu.Lock()
	delete(ws.streams, conn)
	ws.streamMu.Unlock()
}

// closeStreams closes every open stream connection. Runs on server shutdown,
// where the HTTP layer leaves hijacked connections alone; closing the
// underlying conn makes the push loop's next write fail and return.
func (ws *WebServer) closeStreams() {
	ws.streamMu.Lock()
	conns := make([]*websocket.Conn, 0, len(ws.streams))
	for c := range ws.streams {
		conns = append(conns, c)
	}
	ws.streamMu.Unlock()

	for _, c := range conns {
		deadline := time.Now().Add(time.Second)
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = c.Close()
	}
	if len(conns) > 0 {
		monitoring.Logf("[Monitor] Closed %d terrain stream connection(s)", len(conns))
	}
}
