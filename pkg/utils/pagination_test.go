package utils

import "testing"

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		perPage int
		want    int
	}{
		{"zero total", 0, 20, 0},
		{"negative total", -1, 20, 0},
		{"zero per page", 10, 0, 0},
		{"exact fit", 40, 20, 2},
		{"remainder adds page", 41, 20, 3},
		{"single item", 1, 20, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalPages(tt.total, tt.perPage); got != tt.want {
				t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.perPage, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate = %q, want %q", got, "hello...")
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q, want unchanged", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("Truncate with maxLen 0 = %q, want unchanged", got)
	}
}
