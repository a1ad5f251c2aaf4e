// Package aggregate maintains the running statistics, device indexes, and
// navigation tree derived from ingested building records, and exposes them
// as cheap immutable snapshots.
package aggregate

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

// Accumulator consumes decoded building records and header-only partial
// records for one ingestion run. It is not safe for concurrent use; callers
// serialize access (the orchestrator holds its own mutex).
//
// Re-delivery of a record for a known building replaces that building's
// contribution wholesale: old stats are subtracted from the totals, the
// sidebar subtree is rebuilt from scratch, and the building's device index
// entries are reindexed. A naive additive merge would double-count on
// retried ingestion.
type Accumulator struct {
	logger *zap.Logger

	buildings  []models.BuildingMeta
	indexByID  map[string]int
	statsByID  map[string]models.BuildingStats
	nodeByID   map[string]*models.SidebarNode
	nodePos    map[string]int  // building id -> index in tree.Children
	aggregated map[string]bool // buildings with a full record applied

	devicesByType     map[string][]models.NormalizedDevice
	devicesByBuilding map[string]map[string][]models.NormalizedDevice
	deviceTypes       map[string]struct{}
	deviceTypeList    []string

	tree   *models.SidebarNode
	totals models.DerivedTotals
}

// New creates an empty accumulator. Its memory belongs to one ingestion run
// and is discarded once a final snapshot has been produced.
func New(logger *zap.Logger) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{
		logger:            logger,
		indexByID:         make(map[string]int),
		statsByID:         make(map[string]models.BuildingStats),
		nodeByID:          make(map[string]*models.SidebarNode),
		nodePos:           make(map[string]int),
		aggregated:        make(map[string]bool),
		devicesByType:     make(map[string][]models.NormalizedDevice),
		devicesByBuilding: make(map[string]map[string][]models.NormalizedDevice),
		deviceTypes:       make(map[string]struct{}),
		tree:              models.NewSidebarRoot(),
	}
}

// AddHeader registers a partial building sighted by the header sniffer.
// For a new identity it creates placeholder meta, stats, and a sidebar node.
// For a header-only building it merges newly known fields without discarding
// known ones. Once a full record has been aggregated for the identity the
// header is a no-op: a header must never override a fully aggregated
// building.
func (a *Accumulator) AddHeader(h models.BuildingHeader) {
	if h.BuildingID == "" {
		return
	}
	if a.aggregated[h.BuildingID] {
		return
	}

	if idx, ok := a.indexByID[h.BuildingID]; ok {
		current := a.buildings[idx]
		a.buildings[idx] = models.BuildingMeta{
			ID:      h.BuildingID,
			Name:    firstNonEmpty(h.Name, current.Name),
			Address: firstNonEmpty(h.Address, current.Address),
			Lat:     firstCoord(h.Lat, current.Lat),
			Lng:     firstCoord(h.Lng, current.Lng),
		}
	} else {
		a.buildings = append(a.buildings, models.BuildingMeta{
			ID:      h.BuildingID,
			Name:    firstNonEmpty(h.Name, h.BuildingID),
			Address: firstNonEmpty(h.Address, models.UnknownAddress),
			Lat:     h.Lat,
			Lng:     h.Lng,
		})
		a.indexByID[h.BuildingID] = len(a.buildings) - 1
		a.totals.Buildings = len(a.buildings)
	}

	if _, ok := a.statsByID[h.BuildingID]; !ok {
		a.statsByID[h.BuildingID] = models.BuildingStats{BuildingID: h.BuildingID}
	}

	if node, ok := a.nodeByID[h.BuildingID]; ok {
		if h.Name != "" && h.Name != node.Name {
			renamed := *node
			renamed.Name = h.Name
			a.installNode(h.BuildingID, &renamed)
		}
	} else {
		a.installNode(h.BuildingID, &models.SidebarNode{
			ID:       "building:" + h.BuildingID,
			Name:     firstNonEmpty(h.Name, h.BuildingID),
			Type:     models.SidebarNodeBuilding,
			Children: []*models.SidebarNode{},
		})
	}

	a.checkTotals()
}

// AddRecord aggregates a fully decoded building record, replacing any prior
// contribution for the same identity. The walk order is building, then
// floors (spaces before direct rooms), then building-level spaces, then
// building-level rooms, mirroring the raw nesting actually present.
func (a *Accumulator) AddRecord(b *models.RawBuilding) {
	id := b.BuildingID
	if id == "" {
		return
	}

	if old, ok := a.statsByID[id]; ok {
		a.totals.Subtract(old)
	}
	a.dropBuildingDevices(id)

	// The subtree is built fresh and swapped in whole once complete, so
	// reprocessing never duplicates children and snapshots emitted earlier
	// keep the node they saw.
	node := &models.SidebarNode{
		ID:       "building:" + id,
		Name:     firstNonEmpty(b.Name, id),
		Type:     models.SidebarNodeBuilding,
		Children: []*models.SidebarNode{},
	}

	stats := models.BuildingStats{BuildingID: id}
	hasOnlineSignal := false

	addDevices := func(devices []models.RawDevice, loc models.DeviceLocation) {
		for _, d := range devices {
			normalized := models.NormalizeDevice(d, loc)
			a.indexDevice(normalized)
			stats.Devices++
			if normalized.Online != models.OnlineStateUnknown {
				hasOnlineSignal = true
				if normalized.Online == models.OnlineStateOnline {
					stats.OnlineDevices++
				}
			}
		}
	}

	addRoom := func(parent *models.SidebarNode, room models.RawRoom, loc models.DeviceLocation) {
		parent.Children = append(parent.Children, &models.SidebarNode{
			ID:       "room:" + room.RoomID,
			Name:     firstNonEmpty(room.Name, room.RoomID),
			Type:     models.SidebarNodeRoom,
			Children: []*models.SidebarNode{},
		})
		stats.Rooms++
		loc.RoomID = room.RoomID
		addDevices(room.Devices, loc)
	}

	addSpace := func(parent *models.SidebarNode, space models.RawSpace, loc models.DeviceLocation) {
		spaceNode := &models.SidebarNode{
			ID:       "space:" + space.SpaceID,
			Name:     firstNonEmpty(space.Name, space.SpaceID),
			Type:     models.SidebarNodeSpace,
			Children: []*models.SidebarNode{},
		}
		parent.Children = append(parent.Children, spaceNode)
		stats.Spaces++
		loc.SpaceID = space.SpaceID
		addDevices(space.Devices, loc)
		for _, room := range space.Rooms {
			addRoom(spaceNode, room, loc)
		}
	}

	addDevices(b.Devices, models.DeviceLocation{BuildingID: id})

	for _, floor := range b.Floors {
		floorNode := &models.SidebarNode{
			ID:       "floor:" + floor.FloorID,
			Name:     floorName(floor),
			Type:     models.SidebarNodeFloor,
			Children: []*models.SidebarNode{},
		}
		node.Children = append(node.Children, floorNode)
		stats.Floors++
		loc := models.DeviceLocation{BuildingID: id, FloorID: floor.FloorID}
		addDevices(floor.Devices, loc)
		for _, space := range floor.Spaces {
			addSpace(floorNode, space, loc)
		}
		for _, room := range floor.Rooms {
			addRoom(floorNode, room, loc)
		}
	}

	for _, space := range b.Spaces {
		addSpace(node, space, models.DeviceLocation{BuildingID: id})
	}
	for _, room := range b.Rooms {
		addRoom(node, room, models.DeviceLocation{BuildingID: id})
	}

	a.installNode(id, node)

	// A record-level online count is only trusted when no device carried a
	// resolvable signal; the two sources are never combined.
	if !hasOnlineSignal && b.OnlineDevices != nil {
		stats.OnlineDevices = int(*b.OnlineDevices)
	}

	if idx, ok := a.indexByID[id]; ok {
		current := a.buildings[idx]
		a.buildings[idx] = models.BuildingMeta{
			ID:      id,
			Name:    firstNonEmpty(b.Name, current.Name),
			Address: firstNonEmpty(b.Address, current.Address),
			Lat:     firstCoord(b.Lat, current.Lat),
			Lng:     firstCoord(b.Lng, current.Lng),
		}
	} else {
		a.buildings = append(a.buildings, models.BuildingMeta{
			ID:      id,
			Name:    firstNonEmpty(b.Name, id),
			Address: firstNonEmpty(b.Address, models.UnknownAddress),
			Lat:     b.Lat,
			Lng:     b.Lng,
		})
		a.indexByID[id] = len(a.buildings) - 1
	}

	a.statsByID[id] = stats
	a.totals.Add(stats)
	a.totals.Buildings = len(a.buildings)
	a.aggregated[id] = true

	if len(a.deviceTypeList) != len(a.deviceTypes) {
		a.refreshDeviceTypes()
	}

	a.checkTotals()
}

// installNode makes node the building's current sidebar entry, preserving
// its position in the tree. Installed nodes are never mutated afterwards;
// every update swaps in a freshly built node, so snapshots that captured the
// previous one keep a frozen subtree.
func (a *Accumulator) installNode(id string, node *models.SidebarNode) {
	if pos, ok := a.nodePos[id]; ok {
		a.tree.Children[pos] = node
	} else {
		a.tree.Children = append(a.tree.Children, node)
		a.nodePos[id] = len(a.tree.Children) - 1
	}
	a.nodeByID[id] = node
}

// indexDevice appends the device to both indexes and records its type.
func (a *Accumulator) indexDevice(d models.NormalizedDevice) {
	a.devicesByType[d.DeviceType] = append(a.devicesByType[d.DeviceType], d)
	perType := a.devicesByBuilding[d.BuildingID]
	if perType == nil {
		perType = make(map[string][]models.NormalizedDevice)
		a.devicesByBuilding[d.BuildingID] = perType
	}
	perType[d.DeviceType] = append(perType[d.DeviceType], d)
	a.deviceTypes[d.DeviceType] = struct{}{}
}

// dropBuildingDevices removes a building's devices from both indexes ahead
// of re-aggregation. Filtered slices are freshly allocated so snapshots
// taken earlier keep their view. Types that become empty stay registered:
// the finalized type list reflects every type seen across the run.
func (a *Accumulator) dropBuildingDevices(id string) {
	perType, ok := a.devicesByBuilding[id]
	if !ok {
		return
	}
	for deviceType := range perType {
		old := a.devicesByType[deviceType]
		kept := make([]models.NormalizedDevice, 0, len(old))
		for _, d := range old {
			if d.BuildingID != id {
				kept = append(kept, d)
			}
		}
		a.devicesByType[deviceType] = kept
	}
	delete(a.devicesByBuilding, id)
}

func (a *Accumulator) refreshDeviceTypes() {
	a.deviceTypeList = make([]string, 0, len(a.deviceTypes))
	for t := range a.deviceTypes {
		a.deviceTypeList = append(a.deviceTypeList, t)
	}
	sort.Strings(a.deviceTypeList)
}

// Snapshot returns an immutable read-only view of the current state. It is
// cheap: shallow copies of the top-level slices and maps plus the sorted
// type list, no deep re-walk. Sidebar nodes are safe to share because they
// are frozen once installed; later mutations swap nodes instead of editing
// them.
func (a *Accumulator) Snapshot(complete bool) Snapshot {
	devicesByBuilding := make(map[string]map[string][]models.NormalizedDevice, len(a.devicesByBuilding))
	for id, perType := range a.devicesByBuilding {
		devicesByBuilding[id] = maps.Clone(perType)
	}
	root := *a.tree
	root.Children = slices.Clone(a.tree.Children)
	return Snapshot{
		Buildings:         slices.Clone(a.buildings),
		BuildingStatsByID: maps.Clone(a.statsByID),
		DevicesByType:     maps.Clone(a.devicesByType),
		DevicesByBuilding: devicesByBuilding,
		DeviceTypes:       a.deviceTypeList,
		SidebarTree:       &root,
		Totals:            a.totals,
		Complete:          complete,
	}
}

// Finalize returns the completed snapshot, guaranteeing the device type list
// covers every type seen across the whole run, sorted lexicographically.
func (a *Accumulator) Finalize() Snapshot {
	a.totals.Buildings = len(a.buildings)
	a.refreshDeviceTypes()
	return a.Snapshot(true)
}

// checkTotals verifies that the running totals equal the pointwise sum of
// the current per-building stats. DPanic surfaces drift loudly in
// development and logs it in production.
func (a *Accumulator) checkTotals() {
	sum := models.DerivedTotals{Buildings: len(a.buildings)}
	for _, s := range a.statsByID {
		sum.Add(s)
	}
	if sum != a.totals {
		a.logger.DPanic("derived totals drifted from per-building stats",
			zap.String("totals", fmt.Sprintf("%+v", a.totals)),
			zap.String("sum", fmt.Sprintf("%+v", sum)),
		)
	}
}

func floorName(f models.RawFloor) string {
	if f.Level != nil {
		return fmt.Sprintf("Floor %d", *f.Level)
	}
	return f.FloorID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstCoord(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
