package regions

import (
	"fmt"
	"strings"
)

// InvalidTargetError reports an explicit endpoint filter containing unknown
// or opted-out endpoints. Fatal for the whole request; returned before any
// scanning starts.
type InvalidTargetError struct {
	Invalid []string
	Reason  string
}

func (e *InvalidTargetError) Error() string {
	if len(e.Invalid) == 0 {
		return fmt.Sprintf("invalid endpoint filter: %s", e.Reason)
	}
	return fmt.Sprintf("invalid endpoint filter (%s): %s", e.Reason, strings.Join(e.Invalid, ", "))
}
