package widgets

import (
	"strings"
	"testing"

	"bandmate/theme"
)

func TestMeterCells(t *testing.T) {
	tests := []struct {
		value, max float64
		width, want int
	}{
		{0, 0.2, 20, 0},
		{0.1, 0.2, 20, 10},
		{0.5, 0.2, 20, 20},
		{-1, 0.2, 20, 0},
		{0.1, 0, 20, 0},
	}
	for _, tt := range tests {
		if got := MeterCells(tt.value, tt.max, tt.width); got != tt.want {
			t.Errorf("MeterCells(%v, %v, %d) = %d, want %d", tt.value, tt.max, tt.width, got, tt.want)
		}
	}
}

func TestRenderStepRow(t *testing.T) {
	th := theme.New(theme.DefaultPalette())
	hits := make([]bool, 16)
	hits[0], hits[8] = true, true
	row := RenderStepRow(th, "kick", hits, 8)
	if !strings.HasPrefix(row, "kick") {
		t.Errorf("row = %q", row)
	}
	if strings.Count(row, "●") != 1 || strings.Count(row, "◉") != 1 || strings.Count(row, "·") != 14 {
		t.Errorf("row symbols wrong: %q", row)
	}
}

func TestRenderKeyHelp(t *testing.T) {
	got := RenderKeyHelp([]KeySection{{Title: "keys", Keys: []KeyBinding{{"q", "quit"}}}})
	if got != "keys\n  q            quit" {
		t.Errorf("got %q", got)
	}
}
