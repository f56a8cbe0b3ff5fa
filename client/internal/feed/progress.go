package feed

import "github.com/quickbite/quickbite/pkg/types"

// Progress maps a status to a completion percentage. Unknown statuses map
// to 0.
func Progress(s types.Status) int {
	switch s {
	case types.StatusPending:
		return 10
	case types.StatusAccepted:
		return 25
	case types.StatusPreparing:
		return 60
	case types.StatusReady, types.StatusCompleted:
		return 100
	default:
		return 0
	}
}
