package aggregate

import (
	"time"

	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

// Snapshot is a point-in-time view of aggregated state handed to consumers.
// Consumers must treat it as read-only.
type Snapshot struct {
	Buildings         []models.BuildingMeta                           `json:"buildings"`
	BuildingStatsByID map[string]models.BuildingStats                 `json:"buildingStatsById"`
	DevicesByType     map[string][]models.NormalizedDevice            `json:"devicesByType"`
	DevicesByBuilding map[string]map[string][]models.NormalizedDevice `json:"devicesByBuildingId"`
	DeviceTypes       []string                                        `json:"deviceTypes"`
	SidebarTree       *models.SidebarNode                             `json:"sidebarTree"`
	Totals            models.DerivedTotals                            `json:"totals"`
	Complete          bool                                            `json:"isComplete"`
}

// BuildSummary projects a snapshot into its durable, device-detail-free
// form.
func BuildSummary(snap Snapshot) models.CachedSummary {
	return models.CachedSummary{
		Version:           models.SummaryVersion,
		GeneratedAt:       time.Now().UTC(),
		Buildings:         snap.Buildings,
		BuildingStatsByID: snap.BuildingStatsByID,
		SidebarTree:       snap.SidebarTree,
		Totals:            snap.Totals,
	}
}

// HydrateSummary reconstitutes a cached summary as an incomplete snapshot:
// buildings, stats, tree, and totals are shown immediately while the device
// indexes stay empty until a fresh ingestion fills them.
func HydrateSummary(s models.CachedSummary) Snapshot {
	tree := s.SidebarTree
	if tree == nil {
		tree = models.NewSidebarRoot()
	}
	return Snapshot{
		Buildings:         s.Buildings,
		BuildingStatsByID: s.BuildingStatsByID,
		DevicesByType:     map[string][]models.NormalizedDevice{},
		DevicesByBuilding: map[string]map[string][]models.NormalizedDevice{},
		DeviceTypes:       []string{},
		SidebarTree:       tree,
		Totals:            s.Totals,
		Complete:          false,
	}
}
