// Package models defines the shared data model for the buildings dashboard:
// the untrusted record shapes delivered by the upstream feed, the normalized
// device representation, aggregate statistics, the sidebar navigation tree,
// and the cacheable summary projection.
package models

// RawDevice is one device entry as delivered by the upstream feed. Only the
// id is required. Status and the boolean-ish connectivity fields are typed
// `any` because the feed mixes booleans, 0/1 numbers, and free-text tokens
// for the same field across records.
type RawDevice struct {
	ID                string   `json:"id"`
	Name              string   `json:"name,omitempty"`
	SerialNumber      string   `json:"serialNumber,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TargetTemperature *float64 `json:"targetTemperature,omitempty"`
	Battery           *float64 `json:"battery,omitempty"`
	DeviceType        string   `json:"deviceType,omitempty"`
	Status            any      `json:"status,omitempty"`
	Online            any      `json:"online,omitempty"`
	IsOnline          any      `json:"isOnline,omitempty"`
}

// RawRoom is a room entry. Rooms are leaves of the location hierarchy.
type RawRoom struct {
	RoomID  string      `json:"roomId"`
	Name    string      `json:"name,omitempty"`
	Devices []RawDevice `json:"devices,omitempty"`
}

// RawSpace is a space entry, optionally containing rooms and devices.
type RawSpace struct {
	SpaceID string      `json:"spaceId"`
	Name    string      `json:"name,omitempty"`
	Rooms   []RawRoom   `json:"rooms,omitempty"`
	Devices []RawDevice `json:"devices,omitempty"`
}

// RawFloor is a floor entry. Floors may carry spaces, direct rooms, and
// direct devices in any combination.
type RawFloor struct {
	FloorID string      `json:"floorId"`
	Level   *int        `json:"level,omitempty"`
	Spaces  []RawSpace  `json:"spaces,omitempty"`
	Rooms   []RawRoom   `json:"rooms,omitempty"`
	Devices []RawDevice `json:"devices,omitempty"`
}

// RawBuilding is one top-level record of the upstream array. The nesting is
// deliberately loose: a building may carry floors, but also direct spaces,
// rooms, or devices without any intermediate level.
//
// OnlineDevices is an optional pre-aggregated online count some records
// carry. It decodes as float64 because the feed is not consistent about
// integer formatting.
type RawBuilding struct {
	BuildingID    string      `json:"buildingId"`
	Name          string      `json:"name,omitempty"`
	Address       string      `json:"address,omitempty"`
	Lat           *float64    `json:"lat,omitempty"`
	Lng           *float64    `json:"lng,omitempty"`
	OnlineDevices *float64    `json:"onlineDevices,omitempty"`
	Floors        []RawFloor  `json:"floors,omitempty"`
	Spaces        []RawSpace  `json:"spaces,omitempty"`
	Rooms         []RawRoom   `json:"rooms,omitempty"`
	Devices       []RawDevice `json:"devices,omitempty"`
}

// BuildingHeader is the partial, best-effort subset of a building's scalar
// fields sniffed from an object's text before the object is complete. A
// later full parse of the same building always supersedes it.
type BuildingHeader struct {
	BuildingID string
	Name       string
	Address    string
	Lat        *float64
	Lng        *float64
}
