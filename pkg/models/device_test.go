package models

import "testing"

func TestNormalizeDevice(t *testing.T) {
	temp := 21.5
	raw := RawDevice{
		ID:          "d1",
		Name:        "Lobby Cam",
		DeviceType:  "camera",
		Temperature: &temp,
		Status:      "Nominal",
	}
	loc := DeviceLocation{BuildingID: "b1", FloorID: "f1", RoomID: "r1"}

	got := NormalizeDevice(raw, loc)
	if got.ID != "d1" || got.Name != "Lobby Cam" || got.DeviceType != "camera" {
		t.Errorf("identity = %+v", got)
	}
	if got.Online != OnlineStateOnline {
		t.Errorf("Online = %q, want online", got.Online)
	}
	if got.Status != "Nominal" {
		t.Errorf("Status = %q", got.Status)
	}
	if got.Temperature == nil || *got.Temperature != 21.5 {
		t.Errorf("Temperature = %v", got.Temperature)
	}
	if got.DeviceLocation != loc {
		t.Errorf("location = %+v, want %+v", got.DeviceLocation, loc)
	}
}

func TestNormalizeDeviceDefaults(t *testing.T) {
	got := NormalizeDevice(RawDevice{ID: "d9"}, DeviceLocation{BuildingID: "b1"})
	if got.Name != "d9" {
		t.Errorf("Name = %q, want id fallback", got.Name)
	}
	if got.DeviceType != DeviceTypeUnknown {
		t.Errorf("DeviceType = %q, want %q", got.DeviceType, DeviceTypeUnknown)
	}
	if got.Online != OnlineStateUnknown {
		t.Errorf("Online = %q, want unknown", got.Online)
	}
	if got.Status != "" {
		t.Errorf("Status = %q, want empty", got.Status)
	}
}
