package height_test

import (
	"math"
	"testing"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/height"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name      string
		props     map[string]any
		wantValue float64
		wantBasis domain.HeightBasis
	}{
		{"meters suffix", map[string]any{"height": "12m"}, 12, domain.BasisExplicitHeight},
		{"bare number string", map[string]any{"height": "12.5"}, 12.5, domain.BasisExplicitHeight},
		{"decimal comma", map[string]any{"height": "12,5"}, 12.5, domain.BasisExplicitHeight},
		{"decimal comma with unit", map[string]any{"height": "3,5 m"}, 3.5, domain.BasisExplicitHeight},
		{"levels with decimal comma", map[string]any{"building:levels": "2,5"}, 8, domain.BasisLevelCount},
		{"feet", map[string]any{"height": "40ft"}, 12.192, domain.BasisExplicitHeight},
		{"json number", map[string]any{"height": 7.0}, 7, domain.BasisExplicitHeight},
		{"levels", map[string]any{"building:levels": "3"}, 9.6, domain.BasisLevelCount},
		{"height beats levels", map[string]any{"height": "20", "building:levels": "3"}, 20, domain.BasisExplicitHeight},
		{"malformed height falls to levels", map[string]any{"height": "tall", "building:levels": "2"}, 6.4, domain.BasisLevelCount},
		{"roof minus ground", map[string]any{"b3_h_dak_max": 14.5, "b3_h_maaiveld": 1.25}, 13.25, domain.BasisRoofMinusGround},
		{"roof below ground clamps", map[string]any{"b3_h_dak_max": 1.0, "b3_h_maaiveld": 2.0}, 0, domain.BasisRoofMinusGround},
		{"roof without ground", map[string]any{"b3_h_dak_max": 14.5}, height.DefaultMeters, domain.BasisDefault},
		{"empty", map[string]any{}, height.DefaultMeters, domain.BasisDefault},
		{"nil map", nil, height.DefaultMeters, domain.BasisDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := height.Estimate(tt.props)
			if math.Abs(got.Value-tt.wantValue) > 1e-9 {
				t.Errorf("expected value %v, got %v", tt.wantValue, got.Value)
			}
			if got.Basis != tt.wantBasis {
				t.Errorf("expected basis %s, got %s", tt.wantBasis, got.Basis)
			}
		})
	}
}

func TestEstimate_ExactValues(t *testing.T) {
	if got := height.Estimate(map[string]any{"height": "12m"}).Value; got != 12 {
		t.Errorf("expected 12, got %v", got)
	}
	if got := height.Estimate(map[string]any{"building:levels": "3"}).Value; got != 9.6 {
		t.Errorf("expected 9.6, got %v", got)
	}
}

func TestKeep_BoundaryInclusive(t *testing.T) {
	tests := []struct {
		value float64
		want  bool
	}{
		{2.999, false},
		{3, true},
		{3.2, true},
		{0, false},
	}
	for _, tt := range tests {
		got := height.Keep(domain.HeightEstimate{Value: tt.value})
		if got != tt.want {
			t.Errorf("Keep(%v): expected %v, got %v", tt.value, tt.want, got)
		}
	}
}

func TestParseLength_Malformed(t *testing.T) {
	for _, in := range []any{"", "m", "abc", "12x", "-4", "1,2,3", "1,5.0", true, []any{1}} {
		if v, ok := height.ParseLength(in); ok {
			t.Errorf("ParseLength(%#v): expected no value, got %v", in, v)
		}
	}
}
