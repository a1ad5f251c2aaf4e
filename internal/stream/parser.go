package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

// ErrMissingBuildingID marks a record whose object decoded but carries no
// building identity. Identity is the one required field per level.
var ErrMissingBuildingID = errors.New("record has no buildingId")

// ParseBuilding decodes a complete raw object span into a typed building
// record. A failure is fatal to this record only; callers skip the record
// and keep consuming the stream.
func ParseBuilding(span []byte) (*models.RawBuilding, error) {
	var b models.RawBuilding
	if err := json.Unmarshal(span, &b); err != nil {
		return nil, fmt.Errorf("decode building record: %w", err)
	}
	if b.BuildingID == "" {
		return nil, ErrMissingBuildingID
	}
	return &b, nil
}
