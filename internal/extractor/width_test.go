package extractor

import "testing"

func TestPortWidth(t *testing.T) {
	tests := []struct {
		rng  string
		want int
	}{
		{"", 1},
		{"[7:0]", 8},
		{"[0:15]", 16},
		{"[15:8]", 8},
		{"[ 3 : 0 ]", 4},
		{"[WIDTH-1:0]", 0},
		{"[`BUS-1:0]", 0},
	}

	for _, tt := range tests {
		if got := newPort("p", "input", tt.rng, 1).Width; got != tt.want {
			t.Fatalf("width of %q = %d, want %d", tt.rng, got, tt.want)
		}
	}
}
