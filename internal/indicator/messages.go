package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	infoTitle    string
	warningTitle string
	errorTitle   string
}

func (m messages) title(level Level) string {
	switch level {
	case LevelError:
		return m.errorTitle
	case LevelWarning:
		return m.warningTitle
	default:
		return m.infoTitle
	}
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			infoTitle:    "narrator",
			warningTitle: "narrator warning",
			errorTitle:   "narrator error",
		}
	}
}
