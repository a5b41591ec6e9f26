package relist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noakmilo/qventory-backend/internal/relist"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

func TestNextPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rule    domain.RelistRule
		current float64
		want    float64
		ok      bool
	}{
		{
			name:    "percent decrease",
			rule:    domain.RelistRule{DecreaseType: domain.DecreasePercent, DecreaseAmount: 2},
			current: 100,
			want:    98,
			ok:      true,
		},
		{
			name:    "fixed decrease",
			rule:    domain.RelistRule{DecreaseType: domain.DecreaseFixed, DecreaseAmount: 5},
			current: 100,
			want:    95,
			ok:      true,
		},
		{
			name:    "cents round down",
			rule:    domain.RelistRule{DecreaseType: domain.DecreasePercent, DecreaseAmount: 2},
			current: 24.99,
			want:    24.49,
			ok:      true,
		},
		{
			name: "floor clamps the decrease",
			rule: domain.RelistRule{
				DecreaseType:   domain.DecreasePercent,
				DecreaseAmount: 10,
				FloorPrice:     95,
			},
			current: 100,
			want:    95,
			ok:      true,
		},
		{
			name: "already at the floor",
			rule: domain.RelistRule{
				DecreaseType:   domain.DecreasePercent,
				DecreaseAmount: 2,
				FloorPrice:     25,
			},
			current: 25,
			want:    0,
			ok:      false,
		},
		{
			name: "floor above the current price",
			rule: domain.RelistRule{
				DecreaseType:   domain.DecreaseFixed,
				DecreaseAmount: 5,
				FloorPrice:     150,
			},
			current: 100,
			want:    0,
			ok:      false,
		},
		{
			name:    "no decrease policy",
			rule:    domain.RelistRule{},
			current: 100,
			want:    0,
			ok:      false,
		},
		{
			name:    "zero current price",
			rule:    domain.RelistRule{DecreaseType: domain.DecreaseFixed, DecreaseAmount: 5},
			current: 0,
			want:    0,
			ok:      false,
		},
		{
			name:    "decrease would cross zero",
			rule:    domain.RelistRule{DecreaseType: domain.DecreaseFixed, DecreaseAmount: 10},
			current: 5,
			want:    0,
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := relist.NextPrice(&tt.rule, tt.current)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}
