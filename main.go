package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/sandtable/internal/config"
	"github.com/banshee-data/sandtable/internal/depth"
	"github.com/banshee-data/sandtable/internal/monitoring"
	"github.com/banshee-data/sandtable/internal/terrain"
	"github.com/banshee-data/sandtable/internal/terrain/monitor"
	"github.com/banshee-data/sandtable/internal/terrain/store"
	"github.com/banshee-data/sandtable/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to tuning config JSON (optional)")
	listen     = flag.String("listen", ":8080", "HTTP listen address")
	dbPath     = flag.String("db", "terrain.db", "Path to terrain database (empty disables persistence)")
	debug      = flag.Bool("debug", false, "Enable debug logging")

	synthetic  = flag.Bool("synthetic", false, "Use the built-in synthetic depth camera")
	udpListen  = flag.String("udp-listen", "", "Listen address for UDP depth frames (e.g. :2368)")
	serialPort = flag.String("serial-port", "", "Serial port for tethered depth cameras (e.g. /dev/ttyUSB0)")
)

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)
	log.Printf("sandtable %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	// Tuning comes from the config file when given, defaults otherwise.
	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("Loaded tuning config from %s", *configPath)
	}

	engineCfg := tuning.EngineConfig()

	var snapStore *store.Store
	if *dbPath != "" {
		var err error
		snapStore, err = store.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open terrain database: %v", err)
		}
		defer snapStore.Close()
		engineCfg.Store = snapStore
	}

	// Published grids are observed through the engine's snapshot accessors
	// (HTTP endpoints and the websocket stream), so until a game engine
	// binding is attached the sink discards them rather than retaining copies.
	engineCfg.Sink = terrain.NullSink{}

	engine, err := terrain.NewEngine(engineCfg)
	if err != nil {
		log.Fatalf("Failed to build terrain engine: %v", err)
	}

	source := buildSource(engine.HandleFrame)
	defer source.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// camera delivery routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := source.Start(ctx); !isShutdown(err) {
			log.Printf("depth source terminated: %v", err)
		}
		log.Print("depth source routine terminated")
	}()

	// pipeline routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); !isShutdown(err) {
			log.Printf("terrain engine terminated: %v", err)
		}
		log.Print("terrain engine routine terminated")
	}()

	// HTTP monitoring routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address: *listen,
			Engine:  engine,
			Store:   snapStore,
		})
		if err := ws.Start(ctx); err != nil {
			log.Printf("web server terminated: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// isShutdown reports whether a routine error is just the cancellation
// requested at shutdown rather than a failure worth logging. Sources may wrap
// the cancellation, so this matches through the chain.
func isShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// buildSource picks the depth camera from flags. Exactly one source must be
// selected; the synthetic camera is the fallback for bench work without
// hardware.
func buildSource(handler depth.FrameHandler) depth.Source {
	selected := 0
	for _, on := range []bool{*synthetic, *udpListen != "", *serialPort != ""} {
		if on {
			selected++
		}
	}
	if selected != 1 {
		log.Fatal("Select exactly one depth source: -synthetic, -udp-listen or -serial-port")
	}

	switch {
	case *udpListen != "":
		return depth.NewUDPListener(depth.UDPListenerConfig{
			Address: *udpListen,
			Handler: handler,
		})
	case *serialPort != "":
		return depth.NewSerialSource(depth.SerialSourceConfig{
			Port:    *serialPort,
			Handler: handler,
		})
	default:
		return depth.NewSyntheticSource(depth.SyntheticSourceConfig{
			Handler: handler,
		})
	}
}
