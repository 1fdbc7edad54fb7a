package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocaleDefaultsToEnglish(t *testing.T) {
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("fr_FR.UTF-8"))
}

func TestIndicatorMessagesTitles(t *testing.T) {
	msg := indicatorMessages(localeEnglish)
	require.Equal(t, "narrator", msg.title(LevelInfo))
	require.Equal(t, "narrator warning", msg.title(LevelWarning))
	require.Equal(t, "narrator error", msg.title(LevelError))
	require.Equal(t, "narrator", msg.title(""))
}
