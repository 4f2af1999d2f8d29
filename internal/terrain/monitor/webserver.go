// Package monitor exposes the HTTP interface for observing a running
// terrain pipeline: JSON status endpoints, a websocket height stream for
// visualiser clients, and browser-rendered debug charts.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/sandtable/internal/monitoring"
	"github.com/banshee-data/sandtable/internal/terrain"
	"github.com/banshee-data/sandtable/internal/terrain/store"
	"github.com/banshee-data/sandtable/internal/version"
)

// WebServer handles the HTTP interface for monitoring the terrain pipeline.
// It provides endpoints for health checks, pipeline status and snapshot
// history.
type WebServer struct {
	address string
	engine  *terrain.Engine
	store   *store.Store
	server  *http.Server

	streamInterval time.Duration

	// Open websocket streams. Server shutdown does not terminate hijacked
	// connections, so the server tracks and closes them itself.
	streamMu sync.Mutex
	streams  map[*websocket.Conn]struct{}
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Engine  *terrain.Engine
	Store   *store.Store // optional; snapshot endpoints 503 without it

	// StreamInterval is the websocket publish cadence. Defaults to 100ms.
	StreamInterval time.Duration
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:        config.Address,
		engine:         config.Engine,
		store:          config.Store,
		streamInterval: config.StreamInterval,
		streams:        make(map[*websocket.Conn]struct{}),
	}
	if ws.streamInterval <= 0 {
		ws.streamInterval = 100 * time.Millisecond
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	ws.server.RegisterOnShutdown(ws.closeStreams)

	return ws
}

// Handler returns the route mux, mainly for tests.
func (ws *WebServer) Handler() http.Handler { return ws.server.Handler }

// Start begins the HTTP server in a goroutine and handles graceful shutdown.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("[Monitor] Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("[Monitor] HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	monitoring.Logf("[Monitor] Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("[Monitor] HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("[Monitor] HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("[Monitor] HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/terrain/status", ws.handleStatus)
	mux.HandleFunc("/api/terrain/params", ws.handleParams)
	mux.HandleFunc("/api/terrain/layers", ws.handleLayers)
	mux.HandleFunc("/api/terrain/heights", ws.handleHeights)
	mux.HandleFunc("/api/terrain/snapshots", ws.handleSnapshots)
	mux.HandleFunc("/debug/terrain/heatmap", ws.handleHeightHeatmap)
	mux.HandleFunc("/ws/terrain", ws.handleTerrainStream)

	return mux
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleHealth handles the health check endpoint.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "sandtable", "version": "%s", "timestamp": "%s"}`,
		version.Version, time.Now().UTC().Format(time.RFC3339))
}

// handleStatus returns the engine's tick counters, queue stats and height
// grid statistics.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ws.writeJSON(w, ws.engine.Status())
}

// handleParams returns the engine's effective tuning parameters.
func (ws *WebServer) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ws.writeJSON(w, ws.engine.Params())
}

// handleLayers returns the sorted texture layer stack.
func (ws *WebServer) handleLayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ws.writeJSON(w, ws.engine.Layers())
}

// handleHeights returns the most recently published height grid as JSON.
func (ws *WebServer) handleHeights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	res, values := ws.engine.SnapshotHeights()
	if res == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no height grid published yet")
		return
	}
	ws.writeJSON(w, map[string]interface{}{
		"resolution": res,
		"values":     values,
	})
}

// handleSnapshots returns a JSON array of recent persisted snapshots.
// Query params:
//
//	limit (optional, default 10, max 100)
func (ws *WebServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured for snapshot lookup")
		return
	}
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	snaps, err := ws.store.ListSnapshots(limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list snapshots: %v", err))
		return
	}

	type SnapSummary struct {
		SnapshotID string `json:"snapshot_id"`
		Taken      string `json:"taken"`
		Resolution int    `json:"resolution"`
		BlobBytes  int    `json:"blob_bytes"`
		Reason     string `json:"reason"`
	}
	summaries := make([]SnapSummary, 0, len(snaps))
	for _, snap := range snaps {
		summaries = append(summaries, SnapSummary{
			SnapshotID: snap.SnapshotID,
			Taken:      time.Unix(0, snap.TakenUnixNanos).Format(time.RFC3339Nano),
			Resolution: snap.Resolution,
			BlobBytes:  snap.BlobBytes,
			Reason:     snap.Reason,
		})
	}
	ws.writeJSON(w, summaries)
}
