// Package viz renders telemetry channels as terminal plots.
package viz

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/drivelab/internal/telemetry"
)

const (
	plotHeight = 10
	plotWidth  = 80
)

// ChannelIndex resolves a telemetry channel name to its wire position.
func ChannelIndex(name string) (int, error) {
	for i, n := range telemetry.ChannelNames {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown channel: %s (want one of %v)", name, telemetry.ChannelNames)
}

// Channel extracts one channel as a float series.
func Channel(records []telemetry.Record, idx int) []float64 {
	data := make([]float64, len(records))
	for i, rec := range records {
		data[i] = float64(rec.Channels()[idx])
	}
	return data
}

// PlotChannel draws one channel against time.
func PlotChannel(w io.Writer, records []telemetry.Record, name string) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to plot")
	}
	idx, err := ChannelIndex(name)
	if err != nil {
		return err
	}

	graph := asciigraph.Plot(Channel(records, idx),
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(name+" vs time"),
	)
	_, err = fmt.Fprintln(w, graph)
	return err
}

// PlotChannels draws several channels stacked.
func PlotChannels(w io.Writer, records []telemetry.Record, names []string) error {
	for _, name := range names {
		if err := PlotChannel(w, records, name); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}
