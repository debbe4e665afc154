package earthwork

import (
	"math"
	"testing"
)

func TestTakeoff(t *testing.T) {
	tests := []struct {
		name       string
		in         Input
		bank       float64
		loose      float64
		truckloads float64
	}{
		{"basement", Input{Length: 30, Width: 20, Depth: 4, Swell: 25, TruckCapacity: 12, HaulOff: true}, 88.889, 111.111, 10},
		{"no haul off", Input{Length: 27, Width: 1, Depth: 1, Swell: 0, TruckCapacity: 12}, 1, 1, 0},
		{"exact truckload", Input{Length: 27, Width: 12, Depth: 1, Swell: 0, TruckCapacity: 12, HaulOff: true}, 12, 12, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Takeoff(tt.in)
			if math.Abs(q["bank_cy"]-tt.bank) > 0.001 || math.Abs(q["loose_cy"]-tt.loose) > 0.001 {
				t.Errorf("expected %v/%v cy, got %v/%v", tt.bank, tt.loose, q["bank_cy"], q["loose_cy"])
			}
			if q["truckloads"] != tt.truckloads {
				t.Errorf("expected %v truckloads, got %v", tt.truckloads, q["truckloads"])
			}
		})
	}
}

func TestHaulOffMaterials(t *testing.T) {
	in := Input{Length: 30, Width: 20, Depth: 4, Swell: 25, TruckCapacity: 12}
	if specs := materials(in, Takeoff(in)); len(specs) != 1 {
		t.Errorf("expected excavation only, got %d specs", len(specs))
	}
	in.HaulOff = true
	if specs := materials(in, Takeoff(in)); len(specs) != 3 {
		t.Errorf("expected excavation, trucks and disposal, got %d specs", len(specs))
	}
}
