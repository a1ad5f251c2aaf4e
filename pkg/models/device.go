package models

// DeviceLocation is the resolved position of a device inside the hierarchy.
// Only the building is guaranteed; the rest depends on where in the raw
// nesting the device appeared.
type DeviceLocation struct {
	BuildingID string `json:"buildingId"`
	FloorID    string `json:"floorId,omitempty"`
	SpaceID    string `json:"spaceId,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
}

// NormalizedDevice is the typed projection of a RawDevice after aggregation.
type NormalizedDevice struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	SerialNumber      string      `json:"serialNumber,omitempty"`
	Temperature       *float64    `json:"temperature,omitempty"`
	TargetTemperature *float64    `json:"targetTemperature,omitempty"`
	Battery           *float64    `json:"battery,omitempty"`
	Status            string      `json:"status,omitempty"`
	DeviceType        string      `json:"deviceType"`
	Online            OnlineState `json:"online"`
	DeviceLocation
}

// DeviceTypeUnknown is used when a raw device carries no deviceType.
const DeviceTypeUnknown = "unknown"

// NormalizeDevice converts a raw device to its typed form at the given
// location. A missing name falls back to the id.
func NormalizeDevice(d RawDevice, loc DeviceLocation) NormalizedDevice {
	name := d.Name
	if name == "" {
		name = d.ID
	}
	deviceType := d.DeviceType
	if deviceType == "" {
		deviceType = DeviceTypeUnknown
	}
	return NormalizedDevice{
		ID:                d.ID,
		Name:              name,
		SerialNumber:      d.SerialNumber,
		Temperature:       d.Temperature,
		TargetTemperature: d.TargetTemperature,
		Battery:           d.Battery,
		Status:            d.StatusText(),
		DeviceType:        deviceType,
		Online:            d.ResolveOnline(),
		DeviceLocation:    loc,
	}
}
