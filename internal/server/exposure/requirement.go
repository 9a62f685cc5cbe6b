package exposure

import (
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
)

// UploadRequired reports whether any notification is pending and open
// today, i.e. StartDate <= today <= DueDate.
func UploadRequired(notifications []models.NotificationRequirement, now time.Time) bool {
	loc := now.Location()
	today := day(now, loc)
	for _, n := range notifications {
		if n.Uploaded {
			continue
		}
		if !day(n.StartDate, loc).After(today) && !day(n.DueDate, loc).Before(today) {
			return true
		}
	}
	return false
}
