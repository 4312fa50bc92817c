package theme

import (
	"strings"
	"testing"
)

func TestParseGPL(t *testing.T) {
	src := `GIMP Palette
Name: test
Columns: 2
# comment
  0   0   0	black
255 255 255	white
1 2
300 0 0	out of range
`
	p, err := ParseGPL(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "test" || len(p.Colors) != 2 {
		t.Fatalf("palette = %+v", p)
	}
	if got := p.Lookup(0.5); got != (RGB{127, 127, 127}) {
		t.Errorf("Lookup(0.5) = %v", got)
	}
	if p.Lookup(-1) != (RGB{0, 0, 0}) || p.Lookup(2) != (RGB{255, 255, 255}) {
		t.Error("Lookup does not clamp")
	}
}

func TestParseGPLEmpty(t *testing.T) {
	if _, err := ParseGPL(strings.NewReader("GIMP Palette\nName: x\n")); err == nil {
		t.Error("expected error for palette without colors")
	}
}

func TestDefaultTheme(t *testing.T) {
	th := New(DefaultPalette())
	if len(th.Palette.Colors) != 11 {
		t.Errorf("default palette has %d colors", len(th.Palette.Colors))
	}
	if got := th.Color(0); got != "#1a0b2e" {
		t.Errorf("Color(0) = %s", got)
	}
}
