package fleet

import "strings"

// Cabinet is a low-voltage cabinet synthesised from the power meters and
// temperature sensors that share a root position. It is derived data:
// cabinets are rebuilt from scratch on every tick and never mutated.
type Cabinet struct {
	ID                    string           `json:"id"`
	Type                  Category         `json:"type"`
	RootTempSensor        *Device          `json:"rootTempSensor,omitempty"`
	RootPowerMeter        *Device          `json:"rootPowerMeter,omitempty"`
	TransformerTempSensor *Device          `json:"transformerTempSensor,omitempty"`
	PowerMeters           []Device         `json:"powerMeters"`
	TempSensors           []Device         `json:"tempSensors"`
	ConnectedDevices      []string         `json:"connectedDevices"`
	Alerts                []Alert          `json:"alerts"`
	Comments              []CabinetComment `json:"comments"`
}

// GetID returns the cabinet root position. It satisfies Identified.
func (c Cabinet) GetID() string { return c.ID }

// CabinetComment is a constituent's comment annotated with its origin sensor.
type CabinetComment struct {
	Comment
	Pos     string   `json:"pos"`
	Type    Category `json:"type"`
	ThingID string   `json:"thingId"`
	RackID  string   `json:"rackId"`
}

// IsCabinetConstituent reports whether a device category is grouped into cabinets.
func IsCabinetConstituent(c Category) bool {
	return c.Is(CategoryPowerMeter) || c.Is(CategoryTempSensor)
}

// GroupCabinets groups power meters and temperature sensors into cabinets by
// the root of their position ("lv1_pm2" belongs to cabinet "lv1").
//
// Within a group devices are folded in scan order. A device whose position
// equals the root claims the root sensor or root meter slot; a temperature
// sensor whose position starts with "tr" claims the transformer slot. Slots
// are re-evaluated for every device, so the last claimant wins. Every other
// constituent is appended to PowerMeters or TempSensors.
//
// Devices of other categories are ignored. Groups without a usable root are
// dropped. Groups are returned in order of first appearance. Input devices
// are copied, never modified.
func GroupCabinets(devices []Device) []Cabinet {
	order := make([]string, 0)
	groups := make(map[string]*Cabinet)

	for i := range devices {
		dev := &devices[i]
		if !IsCabinetConstituent(dev.Type) {
			continue
		}

		root, devicePos, _ := SplitPosition(dev.Info.Pos)
		cab, ok := groups[root]
		if !ok {
			cab = &Cabinet{
				ID:               root,
				Type:             CategoryCabinet,
				PowerMeters:      []Device{},
				TempSensors:      []Device{},
				ConnectedDevices: []string{},
				Alerts:           []Alert{},
				Comments:         []CabinetComment{},
			}
			groups[root] = cab
			order = append(order, root)
		}
		foldConstituent(cab, dev, root, devicePos)
	}

	cabinets := make([]Cabinet, 0, len(order))
	for _, root := range order {
		if strings.TrimSpace(root) == "" {
			continue
		}
		cabinets = append(cabinets, *groups[root])
	}
	return cabinets
}

// foldConstituent merges one device into its cabinet.
func foldConstituent(cab *Cabinet, dev *Device, root, devicePos string) {
	cpy := dev.Clone()

	switch {
	case dev.Type.Is(CategoryTempSensor) && devicePos == root:
		cab.RootTempSensor = cpy
	case dev.Type.Is(CategoryTempSensor) && strings.HasPrefix(devicePos, transformerPrefix):
		cab.TransformerTempSensor = cpy
	case dev.Type.Is(CategoryTempSensor):
		cab.TempSensors = append(cab.TempSensors, *cpy)
	case devicePos == root:
		cab.RootPowerMeter = cpy
	default:
		cab.PowerMeters = append(cab.PowerMeters, *cpy)
	}

	cab.ConnectedDevices = unionStrings(cab.ConnectedDevices, dev.Info.ConnectedDevices)

	// Newest merge goes first.
	if alerts := dev.Alerts(); len(alerts) > 0 {
		merged := make([]Alert, 0, len(alerts)+len(cab.Alerts))
		merged = append(merged, alerts...)
		cab.Alerts = append(merged, cab.Alerts...)
	}

	for _, c := range dev.Comments {
		cab.Comments = append(cab.Comments, CabinetComment{
			Comment: c,
			Pos:     dev.Info.Pos,
			Type:    dev.Type,
			ThingID: dev.ID,
			RackID:  dev.Rack,
		})
	}
}

// unionStrings appends the values of b missing from a, keeping first-seen order.
func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		a = append(a, v)
	}
	return a
}
