// ABOUTME: Tests for compute device selection
// ABOUTME: Verifies DEVICE_TYPE handling and the cpu fallback

package device

import "testing"

func TestPick(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{"empty defaults to cpu", "", CPU},
		{"explicit cpu", "cpu", CPU},
		{"cuda", "cuda", CUDA},
		{"mps", "mps", MPS},
		{"case insensitive", "CUDA", CUDA},
		{"unsupported falls back to cpu", "tpu", CPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pick(tt.requested); got != tt.want {
				t.Errorf("pick(%q) = %q, want %q", tt.requested, got, tt.want)
			}
		})
	}
}

func TestSelectIsStable(t *testing.T) {
	first := Select()
	second := Select()
	if first != second {
		t.Errorf("Select() changed between calls: %q then %q", first, second)
	}
}
