package viz

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/drivelab/internal/telemetry"
)

func TestChannelIndex(t *testing.T) {
	idx, err := ChannelIndex("vr")
	if err != nil {
		t.Fatal(err)
	}
	if idx != 4 {
		t.Errorf("vr should be channel 4, got %d", idx)
	}

	if _, err := ChannelIndex("bogus"); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestChannel(t *testing.T) {
	recs := []telemetry.Record{{VR: 1}, {VR: 2}, {VR: 3}}
	data := Channel(recs, 4)
	if len(data) != 3 || data[0] != 1 || data[2] != 3 {
		t.Errorf("unexpected series: %v", data)
	}
}

func TestPlotChannel(t *testing.T) {
	recs := []telemetry.Record{{YE: 0.1}, {YE: 0.2}, {YE: -0.1}, {YE: 0}}

	var buf bytes.Buffer
	if err := PlotChannel(&buf, recs, "ye"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ye vs time") {
		t.Error("plot should carry the channel caption")
	}
}

func TestPlotChannelEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotChannel(&buf, nil, "ye"); err == nil {
		t.Error("expected error for empty records")
	}
}
