package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	Width           int
	Height          int
	Tiles           int
	Workers         int
	SamplesPerPixel int
	TotalPixels     int           // Total number of pixels rendered
	TotalSamples    int           // Total number of camera samples taken
	MinTileTime     time.Duration // Fastest tile
	MaxTileTime     time.Duration // Slowest tile
	AvgTileTime     time.Duration
	TotalTime       time.Duration // Wall time from first submit to last tile
}

// addTile folds one tile's statistics into the totals
func (rs *RenderStats) addTile(ts TileStats) {
	if rs.Tiles == 0 || ts.Duration < rs.MinTileTime {
		rs.MinTileTime = ts.Duration
	}
	rs.MaxTileTime = max(rs.MaxTileTime, ts.Duration)
	rs.AvgTileTime += ts.Duration
	rs.TotalPixels += ts.Pixels
	rs.TotalSamples += ts.Samples
	rs.Tiles++
}

// finalize turns the summed tile time into an average
func (rs *RenderStats) finalize() {
	if rs.Tiles > 0 {
		rs.AvgTileTime /= time.Duration(rs.Tiles)
	}
}

// SamplesPerSecond returns the camera sample throughput
func (rs RenderStats) SamplesPerSecond() float64 {
	if rs.TotalTime <= 0 {
		return 0
	}
	return float64(rs.TotalSamples) / rs.TotalTime.Seconds()
}

// Table renders the statistics as a text table
func (rs RenderStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Render", "Value"})
	table.SetAutoFormatHeaders(false)
	table.Append([]string{"resolution", fmt.Sprintf("%dx%d", rs.Width, rs.Height)})
	table.Append([]string{"tiles", fmt.Sprint(rs.Tiles)})
	table.Append([]string{"workers", fmt.Sprint(rs.Workers)})
	table.Append([]string{"samples per pixel", fmt.Sprint(rs.SamplesPerPixel)})
	table.Append([]string{"total samples", fmt.Sprint(rs.TotalSamples)})
	table.Append([]string{"tile time min/avg/max", fmt.Sprintf("%v / %v / %v",
		rs.MinTileTime.Round(time.Microsecond), rs.AvgTileTime.Round(time.Microsecond), rs.MaxTileTime.Round(time.Microsecond))})
	table.Append([]string{"total time", rs.TotalTime.Round(time.Millisecond).String()})
	table.Append([]string{"samples/sec", fmt.Sprintf("%.0f", rs.SamplesPerSecond())})
	table.Render()
	return buf.String()
}
