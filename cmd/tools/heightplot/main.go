// heightplot renders the latest persisted height snapshot as PNG profile
// plots: one cross-section per sampled row, height against grid column. Handy
// for checking what the table looked like when the service last snapshotted
// without attaching a visualiser.
//
// Usage:
//
//	heightplot -db terrain.db -out plots/
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sandtable/internal/terrain"
	"github.com/banshee-data/sandtable/internal/terrain/store"
)

var (
	dbPath   = flag.String("db", "terrain.db", "Path to terrain database")
	outDir   = flag.String("out", "plots", "Output directory for PNG files")
	rows     = flag.Int("rows", 8, "Number of evenly spaced rows to profile")
	snapshot = flag.String("snapshot", "", "Snapshot ID (default: latest)")
)

func main() {
	flag.Parse()

	s, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open terrain database: %v", err)
	}
	defer s.Close()

	var snap *store.Snapshot
	if *snapshot != "" {
		snap, err = s.GetSnapshot(*snapshot)
	} else {
		snap, err = s.LatestSnapshot()
	}
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	stats := terrain.ComputeGridStats(snap.Heights)
	log.Printf("Snapshot %s: %dx%d taken %s, heights min=%.3f max=%.3f mean=%.3f",
		snap.SnapshotID, snap.Resolution, snap.Resolution,
		time.Unix(0, snap.TakenUnixNanos).Format(time.RFC3339),
		stats.Min, stats.Max, stats.Mean)

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	outFile, err := plotProfiles(snap, *rows, *outDir)
	if err != nil {
		log.Fatalf("Failed to render profiles: %v", err)
	}
	log.Printf("Wrote %s", outFile)
}

// plotProfiles draws n evenly spaced row cross-sections on a single plot.
func plotProfiles(snap *store.Snapshot, n int, dir string) (string, error) {
	res := snap.Resolution
	if n < 1 {
		n = 1
	}
	if n > res {
		n = res
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Terrain profiles (%dx%d)", res, res)
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Normalized height"
	p.Y.Min = 0
	p.Y.Max = 1

	colors := profileColors(n)
	for i := 0; i < n; i++ {
		row := i * (res - 1) / max(n-1, 1)
		pts := make(plotter.XYs, res)
		for gx := 0; gx < res; gx++ {
			pts[gx] = plotter.XY{X: float64(gx), Y: snap.Heights[row*res+gx]}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("row %d", row), line)
	}

	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	outFile := filepath.Join(dir, fmt.Sprintf("profiles_%s.png",
		time.Unix(0, snap.TakenUnixNanos).Format("20060102_150405")))
	if err := p.Save(14*vg.Inch, 6*vg.Inch, outFile); err != nil {
		return "", fmt.Errorf("save plot: %w", err)
	}
	return outFile, nil
}

// profileColors builds a simple hue ramp so adjacent rows are
// distinguishable.
func profileColors(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		f := float64(i) / float64(max(n-1, 1))
		colors[i] = color.RGBA{
			R: uint8(40 + 180*f),
			G: uint8(60 + 120*(1-f)),
			B: uint8(200 * (1 - f)),
			A: 255,
		}
	}
	return colors
}
