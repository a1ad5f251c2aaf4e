package models

import "time"

// UnknownAddress is the placeholder used when a building record carries no
// address.
const UnknownAddress = "Unknown address"

// BuildingMeta is the identity card of one building.
type BuildingMeta struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// BuildingStats holds the per-building counts. They are recomputed from
// scratch every time the building's record is (re-)ingested.
type BuildingStats struct {
	BuildingID    string `json:"buildingId"`
	Floors        int    `json:"floors"`
	Spaces        int    `json:"spaces"`
	Rooms         int    `json:"rooms"`
	Devices       int    `json:"devices"`
	OnlineDevices int    `json:"onlineDevices"`
}

// DerivedTotals are the process-wide sums across all ingested buildings.
// They must always equal the pointwise sum of the current BuildingStats.
type DerivedTotals struct {
	Buildings     int `json:"buildings"`
	Floors        int `json:"floors"`
	Spaces        int `json:"spaces"`
	Rooms         int `json:"rooms"`
	Devices       int `json:"devices"`
	OnlineDevices int `json:"onlineDevices"`
}

// Add accumulates s into t.
func (t *DerivedTotals) Add(s BuildingStats) {
	t.Floors += s.Floors
	t.Spaces += s.Spaces
	t.Rooms += s.Rooms
	t.Devices += s.Devices
	t.OnlineDevices += s.OnlineDevices
}

// Subtract removes s from t.
func (t *DerivedTotals) Subtract(s BuildingStats) {
	t.Floors -= s.Floors
	t.Spaces -= s.Spaces
	t.Rooms -= s.Rooms
	t.Devices -= s.Devices
	t.OnlineDevices -= s.OnlineDevices
}

// SummaryVersion is the current CachedSummary schema version. Summaries
// with any other version are ignored on load.
const SummaryVersion = 1

// CachedSummary is the durable, device-detail-free projection of a snapshot.
// It is the only aggregate state allowed to cross a persistence boundary.
type CachedSummary struct {
	Version           int                      `json:"version"`
	GeneratedAt       time.Time                `json:"generatedAt"`
	Buildings         []BuildingMeta           `json:"buildings"`
	BuildingStatsByID map[string]BuildingStats `json:"buildingStatsById"`
	SidebarTree       *SidebarNode             `json:"sidebarTree"`
	Totals            DerivedTotals            `json:"totals"`
}
