package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleHeightHeatmap renders the published height grid as an HTML heatmap
// using go-echarts. This is a debugging-only endpoint (no auth) to eyeball
// the terrain without a game client attached.
func (ws *WebServer) handleHeightHeatmap(w http.ResponseWriter, r *http.Request) {
	res, values, err := ws.latestHeights()
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	data := make([]opts.HeatMapData, 0, len(values))
	for gy := 0; gy < res; gy++ {
		for gx := 0; gx < res; gx++ {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{gx, gy, values[gy*res+gx]}})
		}
	}

	xAxis := make([]int, res)
	for i := 0; i < res; i++ {
		xAxis[i] = i
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sandtable Heights", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Terrain Heightmap", Subtitle: fmt.Sprintf("resolution=%dx%d", res, res)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "X"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "Y"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	hm.SetXAxis(xAxis).AddSeries("height", data)

	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// latestHeights returns the current published grid or an error suitable for
// a 404 body.
func (ws *WebServer) latestHeights() (int, []float64, error) {
	res, values := ws.engine.SnapshotHeights()
	if res == 0 {
		return 0, nil, fmt.Errorf("no height grid published yet")
	}
	return res, values, nil
}
