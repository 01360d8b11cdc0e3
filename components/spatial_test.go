package components

import "testing"

func TestVelocityBounds(t *testing.T) {
	tests := []struct {
		name string
		v    Velocity
		inc  bool
		want uint8
	}{
		{"increment below max", Velocity{Current: 1, Max: 3}, true, 2},
		{"increment at max", Velocity{Current: 3, Max: 3}, true, 3},
		{"decrement above floor", Velocity{Current: 3, Max: 3}, false, 2},
		{"decrement at floor", Velocity{Current: 1, Max: 3}, false, 1},
		{"decrement from zero stays zero", Velocity{Current: 0, Max: 3}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.v
			if tt.inc {
				v.Increment()
			} else {
				v.Decrement()
			}
			if v.Current != tt.want {
				t.Errorf("Current = %d, want %d", v.Current, tt.want)
			}
			if v.Current > v.Max {
				t.Errorf("Current %d exceeds Max %d", v.Current, v.Max)
			}
		})
	}
}

func TestNewVelocityClamps(t *testing.T) {
	if v := NewVelocity(9, 4); v.Current != 4 {
		t.Errorf("NewVelocity(9, 4).Current = %d, want 4", v.Current)
	}
}
