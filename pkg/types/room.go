package types

// Room names used by the hub.
const (
	AdminRoom          = "admin"
	CustomerSharedRoom = "customer"
	customerRoomPrefix = "customer-"
	maxRoomNameLen     = 128
)

// CustomerRoom returns the personal room of a customer identity.
func CustomerRoom(userID string) string {
	return customerRoomPrefix + userID
}

// ValidRoom reports whether name is acceptable as a room name: non-empty,
// bounded, and made of letters, digits, '-' and '_'.
func ValidRoom(name string) bool {
	if name == "" || len(name) > maxRoomNameLen {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
