package layout

import (
	"math"
	"testing"
)

func TestResolveColumnWidths(t *testing.T) {
	tests := []struct {
		name       string
		mins, maxs []float64
		total      float64
		want       []float64
	}{
		{"slack absorbed by flexible column", []float64{20, 30}, []float64{20, 200}, 100, []float64{20, 80}},
		{"everything fits at max", []float64{10, 10}, []float64{30, 40}, 100, []float64{30, 40}},
		{"proportional to slack", []float64{0, 0}, []float64{100, 300}, 200, []float64{50, 150}},
		{"no room above minimums", []float64{50, 50}, []float64{80, 80}, 100, []float64{50, 50}},
		{"minimums scaled down", []float64{60, 140}, []float64{60, 140}, 100, []float64{30, 70}},
		{"empty", nil, nil, 100, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveColumnWidths(tt.mins, tt.maxs, tt.total)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-6 {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestResolveColumnWidths_Conservation(t *testing.T) {
	// deterministic pseudo random tables
	seed := uint32(7)
	next := func(n int) float64 {
		seed = seed*1664525 + 1013904223
		return float64(int(seed>>16) % n)
	}
	for range 500 {
		cols := 1 + int(next(6))
		mins := make([]float64, cols)
		maxs := make([]float64, cols)
		var sumMin float64
		for i := range cols {
			mins[i] = next(60)
			maxs[i] = mins[i] + next(200)
			sumMin += mins[i]
		}
		total := sumMin + next(300)

		got := ResolveColumnWidths(mins, maxs, total)
		var sum float64
		for i, w := range got {
			if w < mins[i]-1e-6 || w > maxs[i]+1e-6 {
				t.Fatalf("column %d: %v not within [%v, %v]", i, w, mins[i], maxs[i])
			}
			sum += w
		}
		if sum > total+1e-6 {
			t.Fatalf("sum %v exceeds total %v (mins %v maxs %v)", sum, total, mins, maxs)
		}
	}
}

func TestMarker(t *testing.T) {
	tests := []struct {
		format string
		n      int
		depth  int
		want   string
	}{
		{"decimal", 1, 1, "1. "},
		{"", 3, 1, "• "},
		{"disc", 1, 2, "◦ "},
		{"disc", 1, 3, "▪ "},
		{"disc", 1, 4, "• "},
		{"circle", 1, 1, "◦ "},
		{"square", 1, 1, "▪ "},
		{"lower-alpha", 1, 1, "a. "},
		{"lower-alpha", 26, 1, "z. "},
		{"lower-alpha", 27, 1, "aa. "},
		{"upper-latin", 28, 1, "AB. "},
		{"lower-roman", 4, 1, "iv. "},
		{"upper-roman", 1994, 1, "MCMXCIV. "},
		{"upper-roman", 4000, 1, "4000. "},
		{"none", 1, 1, ""},
		{"unknown", 7, 1, "7. "},
	}
	for _, tt := range tests {
		if got := Marker(tt.format, tt.n, tt.depth); got != tt.want {
			t.Errorf("Marker(%q, %d, %d) = %q, want %q", tt.format, tt.n, tt.depth, got, tt.want)
		}
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		base, ref string
		want      string
		err       error
	}{
		{"text/ch1.xhtml", "../img/a.png", "img/a.png", nil},
		{"text/ch1.xhtml", "./b.png", "text/b.png", nil},
		{"text/ch1.xhtml", "sub/../c.png#frag", "text/c.png", nil},
		{"text/ch1.xhtml", "/root.png", "root.png", nil},
		{"text/ch1.xhtml", "my%20pic.png?x=1", "text/my pic.png", nil},
		{"ch1.xhtml", "a.png", "a.png", nil},
		{"text/ch1.xhtml", "#only", "text/ch1.xhtml", nil},
		{"text/ch1.xhtml", "https://example.com/a.png", "", ErrExternalReference},
	}
	for _, tt := range tests {
		got, err := ResolvePath(tt.base, tt.ref)
		if err != tt.err || got != tt.want {
			t.Errorf("ResolvePath(%q, %q) = %q, %v; want %q, %v", tt.base, tt.ref, got, err, tt.want, tt.err)
		}
	}
}
