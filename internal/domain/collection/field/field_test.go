package field

import "testing"

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name string
		ft   Type
	}{
		{"brand", Tag},
		{"price", Numeric},
	}
	for _, tt := range tests {
		f := Reconstruct(tt.name, tt.ft)
		if f.Name() != tt.name {
			t.Errorf("Name() = %q, want %q", f.Name(), tt.name)
		}
		if f.FieldType() != tt.ft {
			t.Errorf("FieldType() = %q, want %q", f.FieldType(), tt.ft)
		}
	}
}
