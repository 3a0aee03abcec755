package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestNormalizeLevel(t *testing.T) {
	tests := []struct {
		name  string
		level *int
		want  int
	}{
		{"nil defaults to middle", nil, 3},
		{"in range", intPtr(2), 2},
		{"below range clamps up", intPtr(0), 1},
		{"negative clamps up", intPtr(-7), 1},
		{"above range clamps down", intPtr(9), 5},
		{"boundaries hold", intPtr(1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLevel(tt.level))
		})
	}
}

func TestResolvePriority(t *testing.T) {
	tests := []struct {
		name    string
		urgency *int
		impact  *int
		want    int
	}{
		{"critical", intPtr(1), intPtr(1), 1},
		{"high", intPtr(2), intPtr(3), 2},
		{"moderate", intPtr(3), intPtr(3), 3},
		{"mixed extremes average out", intPtr(1), intPtr(5), 3},
		{"low", intPtr(4), intPtr(4), 4},
		{"planning", intPtr(5), intPtr(5), 5},
		{"missing values default", nil, nil, 3},
		{"out of range is clamped first", intPtr(0), intPtr(99), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePriority(tt.urgency, tt.impact))
		})
	}
}

func TestResolvePriority_AlwaysInRange(t *testing.T) {
	for u := -2; u <= 8; u++ {
		for i := -2; i <= 8; i++ {
			p := ResolvePriority(intPtr(u), intPtr(i))
			assert.GreaterOrEqual(t, p, 1)
			assert.LessOrEqual(t, p, 5)
		}
	}
}
