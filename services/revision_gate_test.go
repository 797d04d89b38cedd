package services

import (
	"testing"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/stretchr/testify/assert"
)

func TestNeedsDetailRefresh(t *testing.T) {
	withMarker := func(m *string) *models.Detail { return &models.Detail{RevisionMarker: m} }

	tests := []struct {
		name     string
		stored   *models.Detail
		incoming *string
		force    bool
		want     bool
	}{
		{"no stored detail", nil, strPtr("r1"), false, true},
		{"no stored detail and no marker", nil, nil, false, true},
		{"equal markers", withMarker(strPtr("r1")), strPtr("r1"), false, false},
		{"both markers absent", withMarker(nil), nil, false, false},
		{"marker changed", withMarker(strPtr("r1")), strPtr("r2"), false, true},
		{"marker appeared", withMarker(nil), strPtr("r1"), false, true},
		{"marker disappeared", withMarker(strPtr("r1")), nil, false, true},
		{"forced despite equal markers", withMarker(strPtr("r1")), strPtr("r1"), true, true},
		{"equality is exact", withMarker(strPtr("R1")), strPtr("r1"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsDetailRefresh(tt.stored, tt.incoming, tt.force))
		})
	}
}
