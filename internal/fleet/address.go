package fleet

import "strings"

// NoContainerBucket is the selection bucket for devices with no known container.
const NoContainerBucket = "__no_container__"

const (
	identityTagPrefix = "id-"
	positionTagPrefix = "pos-"
)

// AddressKind distinguishes the two ways a miner can be addressed.
type AddressKind int

// Address kinds.
const (
	AddressIdentity AddressKind = iota + 1
	AddressPosition
)

// String returns the kind name.
func (k AddressKind) String() string {
	switch k {
	case AddressIdentity:
		return "identity"
	case AddressPosition:
		return "position"
	default:
		return "unknown"
	}
}

// Address is a device address: either a stable identity or a positional slot.
// Exactly one of ID or Slot is meaningful, chosen by Kind.
type Address struct {
	Kind AddressKind
	ID   string
	Slot string
}

// IdentityAddress returns the identity address of a device id.
func IdentityAddress(id string) Address {
	return Address{Kind: AddressIdentity, ID: id}
}

// PositionAddress returns the positional address of a slot.
func PositionAddress(slot string) Address {
	return Address{Kind: AddressPosition, Slot: slot}
}

// Tag renders the address in its wire form ("id-<id>" or "pos-<slot>").
func (a Address) Tag() string {
	if a.Kind == AddressPosition {
		return PositionTag(a.Slot)
	}
	return identityTagPrefix + a.ID
}

// IsPosition reports whether the address is positional.
func (a Address) IsPosition() bool { return a.Kind == AddressPosition }

// IdentityTag returns "id-<id>" for the device. A nil device yields "id-".
func IdentityTag(d *Device) string {
	if d == nil {
		return identityTagPrefix
	}
	return identityTagPrefix + d.ID
}

// PositionTag returns "pos-<pos>".
func PositionTag(pos string) string {
	return positionTagPrefix + pos
}

// ParseTag parses a wire tag back into an Address.
func ParseTag(tag string) (Address, bool) {
	switch {
	case strings.HasPrefix(tag, positionTagPrefix):
		return PositionAddress(strings.TrimPrefix(tag, positionTagPrefix)), true
	case strings.HasPrefix(tag, identityTagPrefix):
		return IdentityAddress(strings.TrimPrefix(tag, identityTagPrefix)), true
	default:
		return Address{}, false
	}
}

// ContainerBucket returns the owning container of the device, or
// NoContainerBucket when the device is nil or has no container.
func ContainerBucket(d *Device) string {
	if d == nil || strings.TrimSpace(d.Info.Container) == "" {
		return NoContainerBucket
	}
	return d.Info.Container
}

// SplitPosition splits a cabinet-relative position "root_devicePos" on its
// first separator. ok is false when the position has no separator or an
// empty root.
func SplitPosition(pos string) (root, devicePos string, ok bool) {
	root, devicePos, found := strings.Cut(pos, positionSeparator)
	if !found || strings.TrimSpace(root) == "" {
		return "", "", false
	}
	return root, devicePos, true
}
