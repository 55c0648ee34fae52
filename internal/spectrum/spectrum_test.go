package spectrum

import (
	"errors"
	"testing"
)

func floatEquals(a, b float64) bool {
	const epsilon = 1e-9
	diff := a - b
	return diff < epsilon && diff > -epsilon
}

func TestUniform(t *testing.T) {
	g := Uniform(400, 410, 1)
	if len(g) != 11 {
		t.Fatalf("expected 11 points, got %d", len(g))
	}
	if g[0] != 400 || g[10] != 410 {
		t.Fatalf("unexpected bounds: %v..%v", g[0], g[10])
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if len(Uniform(10, 0, 1)) != 0 {
		t.Fatalf("reversed bounds should give empty grid")
	}
}

func TestGridValidate(t *testing.T) {
	if err := (Grid{1, 2, 2}).Validate(); err == nil {
		t.Fatalf("expected error for repeated wavenumber")
	}
	if err := (Grid{3, 2}).Validate(); err == nil {
		t.Fatalf("expected error for decreasing grid")
	}
}

func TestCrop(t *testing.T) {
	s := Constant("flat", Transmittance, Uniform(400, 500, 1), 0.5)

	tests := []struct {
		name     string
		min, max float64
		wantLen  int
		first    float64
	}{
		{"内部区间", 420, 430, 11, 420},
		{"覆盖全部", 0, 1000, 101, 400},
		{"非整点边界", 420.5, 422.5, 2, 421},
		{"无交集", 600, 700, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Crop(tt.min, tt.max)
			if got.Len() != tt.wantLen || len(got.Grid) != tt.wantLen {
				t.Fatalf("len=%d, want %d", got.Len(), tt.wantLen)
			}
			if tt.wantLen > 0 && got.Grid[0] != tt.first {
				t.Fatalf("first=%v, want %v", got.Grid[0], tt.first)
			}
			for _, x := range got.Grid {
				if x < tt.min || x > tt.max {
					t.Fatalf("wavenumber %v outside [%v, %v]", x, tt.min, tt.max)
				}
			}
		})
	}

	if s.Len() != 101 {
		t.Fatalf("crop modified the source spectrum")
	}
}

func TestSerial(t *testing.T) {
	grid := Uniform(1000, 1004, 1)
	a, _ := New("a", Transmittance, grid, []float64{1, 0.5, 0.2, 1, 0})
	b, _ := New("b", Transmittance, grid, []float64{0.5, 0.5, 0.5, 0.5, 0.5})

	got, err := Serial("ab", a, b, b)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	want := []float64{0.25, 0.125, 0.05, 0.25, 0}
	for i := range want {
		if !floatEquals(got.Values[i], want[i]) {
			t.Fatalf("value[%d]=%v, want %v", i, got.Values[i], want[i])
		}
	}
	if a.Values[1] != 0.5 {
		t.Fatalf("input spectrum was modified")
	}

	opaque := Constant("opaque", Transmittance, grid, 0)
	zero, err := Serial("zero", a, b, opaque)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	for i, v := range zero.Values {
		if v != 0 {
			t.Fatalf("value[%d]=%v, want exactly 0", i, v)
		}
	}
}

func TestSerialGridMismatch(t *testing.T) {
	a := Constant("a", Transmittance, Uniform(0, 10, 1), 1)
	b := Constant("b", Transmittance, Uniform(0, 10, 2), 1)
	if _, err := Serial("ab", a, b); !errors.Is(err, ErrGridMismatch) {
		t.Fatalf("expected ErrGridMismatch, got %v", err)
	}
	if _, err := Serial("none"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestNewLengthMismatch(t *testing.T) {
	if _, err := New("bad", Absorbance, Grid{1, 2}, []float64{1}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}
