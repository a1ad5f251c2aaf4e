package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// towerRecord is a building with every nesting variant: floor devices,
// spaces with rooms, direct building devices, and mixed online signals.
func towerRecord() *models.RawBuilding {
	return &models.RawBuilding{
		BuildingID: "b1",
		Name:       "Harbor Tower",
		Address:    "1 Pier Rd",
		Lat:        floatPtr(52.37),
		Devices: []models.RawDevice{
			{ID: "d-lobby", DeviceType: "camera", Online: true},
		},
		Floors: []models.RawFloor{
			{
				FloorID: "f1",
				Level:   intPtr(1),
				Devices: []models.RawDevice{
					{ID: "d-f1", DeviceType: "thermostat", Status: "FAULT"},
				},
				Spaces: []models.RawSpace{
					{
						SpaceID: "s1",
						Name:    "East Wing",
						Devices: []models.RawDevice{
							{ID: "d-s1", DeviceType: "sensor", Status: "Nominal"},
						},
						Rooms: []models.RawRoom{
							{RoomID: "r1", Name: "Server Room", Devices: []models.RawDevice{
								{ID: "d-r1", DeviceType: "sensor", Status: "calibrating"},
							}},
						},
					},
				},
			},
		},
	}
}

func TestAddRecordCounts(t *testing.T) {
	acc := New(nil)
	acc.AddRecord(towerRecord())
	snap := acc.Finalize()

	require.Len(t, snap.Buildings, 1)
	assert.Equal(t, "Harbor Tower", snap.Buildings[0].Name)
	assert.Equal(t, "1 Pier Rd", snap.Buildings[0].Address)

	stats := snap.BuildingStatsByID["b1"]
	assert.Equal(t, 1, stats.Floors)
	assert.Equal(t, 1, stats.Spaces)
	assert.Equal(t, 1, stats.Rooms)
	assert.Equal(t, 4, stats.Devices)
	// d-lobby (true) and d-s1 (Nominal) are online; d-f1 (FAULT) is offline;
	// d-r1 is outside the vocabulary and counts toward neither.
	assert.Equal(t, 2, stats.OnlineDevices)

	assert.Equal(t, models.DerivedTotals{
		Buildings: 1, Floors: 1, Spaces: 1, Rooms: 1, Devices: 4, OnlineDevices: 2,
	}, snap.Totals)

	assert.Equal(t, []string{"camera", "sensor", "thermostat"}, snap.DeviceTypes)
	assert.Len(t, snap.DevicesByType["sensor"], 2)
	assert.Len(t, snap.DevicesByBuilding["b1"]["camera"], 1)
}

func TestAddRecordIdempotent(t *testing.T) {
	acc := New(nil)
	acc.AddRecord(towerRecord())
	first := acc.Snapshot(false)

	acc.AddRecord(towerRecord())
	second := acc.Snapshot(false)

	assert.Equal(t, first.Totals, second.Totals)
	assert.Equal(t, first.BuildingStatsByID["b1"], second.BuildingStatsByID["b1"])
	assert.Len(t, second.DevicesByType["sensor"], 2)
	require.Len(t, second.SidebarTree.Children, 1)
	assert.Len(t, second.SidebarTree.Children[0].Children, 1)
}

func TestAddRecordReplacesPriorContribution(t *testing.T) {
	acc := New(nil)
	acc.AddRecord(towerRecord())

	// The re-sighted record shrank: one floor with one device, no spaces.
	acc.AddRecord(&models.RawBuilding{
		BuildingID: "b1",
		Name:       "Harbor Tower",
		Floors: []models.RawFloor{
			{FloorID: "f1", Devices: []models.RawDevice{
				{ID: "d-f1", DeviceType: "thermostat", Status: "OK"},
			}},
		},
	})

	snap := acc.Finalize()
	stats := snap.BuildingStatsByID["b1"]
	assert.Equal(t, models.BuildingStats{
		BuildingID: "b1", Floors: 1, Devices: 1, OnlineDevices: 1,
	}, stats)
	assert.Equal(t, models.DerivedTotals{
		Buildings: 1, Floors: 1, Devices: 1, OnlineDevices: 1,
	}, snap.Totals)

	assert.Empty(t, snap.DevicesByType["camera"])
	assert.Empty(t, snap.DevicesByType["sensor"])
	require.Len(t, snap.DevicesByBuilding["b1"]["thermostat"], 1)

	// Types seen earlier in the run stay in the finalized list even when
	// their device lists emptied.
	assert.Equal(t, []string{"camera", "sensor", "thermostat"}, snap.DeviceTypes)
}

func TestAddHeaderCreatesPlaceholder(t *testing.T) {
	acc := New(nil)
	acc.AddHeader(models.BuildingHeader{BuildingID: "b1", Name: "Harbor Tower"})

	snap := acc.Snapshot(false)
	require.Len(t, snap.Buildings, 1)
	assert.Equal(t, "Harbor Tower", snap.Buildings[0].Name)
	assert.Equal(t, models.UnknownAddress, snap.Buildings[0].Address)
	assert.Equal(t, models.BuildingStats{BuildingID: "b1"}, snap.BuildingStatsByID["b1"])
	assert.Equal(t, 1, snap.Totals.Buildings)
	require.Len(t, snap.SidebarTree.Children, 1)
	assert.Equal(t, "building:b1", snap.SidebarTree.Children[0].ID)
}

func TestAddHeaderMergesWithoutErasing(t *testing.T) {
	acc := New(nil)
	acc.AddHeader(models.BuildingHeader{BuildingID: "b1", Name: "Harbor Tower"})
	acc.AddHeader(models.BuildingHeader{BuildingID: "b1", Address: "1 Pier Rd"})

	snap := acc.Snapshot(false)
	require.Len(t, snap.Buildings, 1)
	assert.Equal(t, "Harbor Tower", snap.Buildings[0].Name)
	assert.Equal(t, "1 Pier Rd", snap.Buildings[0].Address)
	assert.Equal(t, 1, snap.Totals.Buildings)
}

func TestAddHeaderAfterRecordIsNoOp(t *testing.T) {
	acc := New(nil)
	acc.AddRecord(towerRecord())
	before := acc.Snapshot(false)

	acc.AddHeader(models.BuildingHeader{BuildingID: "b1", Name: "Impostor", Address: "nowhere"})
	after := acc.Snapshot(false)

	assert.Equal(t, before.Buildings, after.Buildings)
	assert.Equal(t, before.Totals, after.Totals)
	assert.Equal(t, "Harbor Tower", after.SidebarTree.Children[0].Name)
}

func TestRecordSupersedesHeader(t *testing.T) {
	acc := New(nil)
	acc.AddHeader(models.BuildingHeader{BuildingID: "b1", Name: "Sniffed"})
	acc.AddRecord(towerRecord())

	snap := acc.Snapshot(false)
	require.Len(t, snap.Buildings, 1)
	assert.Equal(t, "Harbor Tower", snap.Buildings[0].Name)
	assert.Equal(t, 1, snap.Totals.Buildings)
	require.Len(t, snap.SidebarTree.Children, 1)
	assert.Equal(t, "Harbor Tower", snap.SidebarTree.Children[0].Name)
}

func TestOnlineFallbackUsedOnlyWithoutDeviceSignal(t *testing.T) {
	t.Run("no device signal trusts record count", func(t *testing.T) {
		acc := New(nil)
		acc.AddRecord(&models.RawBuilding{
			BuildingID:    "b1",
			OnlineDevices: floatPtr(3),
			Devices: []models.RawDevice{
				{ID: "d1"}, {ID: "d2"}, {ID: "d3"}, {ID: "d4"}, {ID: "d5"},
			},
		})
		stats := acc.Snapshot(false).BuildingStatsByID["b1"]
		assert.Equal(t, 5, stats.Devices)
		assert.Equal(t, 3, stats.OnlineDevices)
	})

	t.Run("any device signal ignores record count", func(t *testing.T) {
		acc := New(nil)
		acc.AddRecord(&models.RawBuilding{
			BuildingID:    "b1",
			OnlineDevices: floatPtr(3),
			Devices: []models.RawDevice{
				{ID: "d1", Online: true},
				{ID: "d2"}, {ID: "d3"},
			},
		})
		stats := acc.Snapshot(false).BuildingStatsByID["b1"]
		assert.Equal(t, 1, stats.OnlineDevices)
	})
}

func TestFloorNaming(t *testing.T) {
	acc := New(nil)
	acc.AddRecord(&models.RawBuilding{
		BuildingID: "b1",
		Floors: []models.RawFloor{
			{FloorID: "f1", Level: intPtr(3)},
			{FloorID: "mezzanine"},
		},
	})
	snap := acc.Snapshot(false)
	require.Len(t, snap.SidebarTree.Children, 1)
	floors := snap.SidebarTree.Children[0].Children
	require.Len(t, floors, 2)
	assert.Equal(t, "Floor 3", floors[0].Name)
	assert.Equal(t, "mezzanine", floors[1].Name)
}

func TestSnapshotIsolation(t *testing.T) {
	acc := New(nil)
	acc.AddRecord(towerRecord())
	snap := acc.Snapshot(false)

	acc.AddRecord(&models.RawBuilding{BuildingID: "b2", Name: "Annex"})
	acc.AddRecord(&models.RawBuilding{
		BuildingID: "b1",
		Floors:     []models.RawFloor{{FloorID: "f9"}},
	})

	// The earlier snapshot keeps its full view, including the b1 subtree
	// that re-ingestion replaced.
	assert.Len(t, snap.Buildings, 1)
	assert.Equal(t, 4, snap.BuildingStatsByID["b1"].Devices)
	require.Len(t, snap.SidebarTree.Children, 1)
	assert.Len(t, snap.DevicesByType["sensor"], 2)

	b1 := snap.SidebarTree.Children[0]
	assert.Equal(t, "Harbor Tower", b1.Name)
	require.Len(t, b1.Children, 1)
	assert.Equal(t, "floor:f1", b1.Children[0].ID)
	assert.Equal(t, "Floor 1", b1.Children[0].Name)
	require.Len(t, b1.Children[0].Children, 1)
	assert.Equal(t, "space:s1", b1.Children[0].Children[0].ID)

	// The live tree reflects the replacement.
	current := acc.Snapshot(false)
	liveB1 := current.SidebarTree.Children[0]
	require.Len(t, liveB1.Children, 1)
	assert.Equal(t, "floor:f9", liveB1.Children[0].ID)
}

func TestSnapshotNodeNameFrozen(t *testing.T) {
	acc := New(nil)
	acc.AddHeader(models.BuildingHeader{BuildingID: "b1"})
	snap := acc.Snapshot(false)

	acc.AddHeader(models.BuildingHeader{BuildingID: "b1", Name: "Named Later"})

	assert.Equal(t, "b1", snap.SidebarTree.Children[0].Name)
	assert.Equal(t, "Named Later", acc.Snapshot(false).SidebarTree.Children[0].Name)
}

func TestSnapshotMarshalDuringReaggregation(t *testing.T) {
	acc := New(nil)
	acc.AddRecord(towerRecord())
	snap := acc.Snapshot(false)

	// An emitted snapshot may be serialized on another goroutine while the
	// ingestion goroutine re-aggregates the same building.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if _, err := json.Marshal(snap.SidebarTree); err != nil {
				t.Errorf("marshal sidebar tree: %v", err)
				return
			}
		}
	}()
	for i := 0; i < 200; i++ {
		acc.AddRecord(towerRecord())
		acc.AddHeader(models.BuildingHeader{BuildingID: "b2", Name: "Annex"})
	}
	<-done
}

func TestFinalizeSortsDeviceTypes(t *testing.T) {
	acc := New(nil)
	acc.AddRecord(&models.RawBuilding{
		BuildingID: "b1",
		Devices: []models.RawDevice{
			{ID: "d1", DeviceType: "thermostat"},
			{ID: "d2", DeviceType: "camera"},
			{ID: "d3"},
		},
	})
	snap := acc.Finalize()
	assert.True(t, snap.Complete)
	assert.Equal(t, []string{"camera", "thermostat", models.DeviceTypeUnknown}, snap.DeviceTypes)
}
