package narrator

import (
	"github.com/rbright/narrator/internal/config"
	"github.com/rbright/narrator/internal/indicator"
)

// SettingsNotices returns the notices for one configuration change: the
// conflict warning first when donk was forced off, then the update notice.
func SettingsNotices(change config.Change) []indicator.Notice {
	notices := make([]indicator.Notice, 0, 2)
	if change.Conflict {
		notices = append(notices, indicator.Notice{Level: indicator.LevelWarning, Text: config.ConflictMessage})
	}
	return append(notices, indicator.Notice{Level: indicator.LevelInfo, Text: MessageSettings})
}
