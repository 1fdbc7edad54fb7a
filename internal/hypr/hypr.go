// Package hypr shows narrator notices through the Hyprland compositor overlay.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Icon is a hyprctl notify icon index.
type Icon int

const (
	IconWarning Icon = 0
	IconInfo    Icon = 1
	IconError   Icon = 3
)

// Notify sends one overlay notification. An empty color uses the info blue.
func Notify(ctx context.Context, icon Icon, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	return runHyprctl(
		ctx,
		"--quiet",
		"dispatch",
		"notify",
		strconv.Itoa(int(icon)),
		strconv.Itoa(timeoutMS),
		color,
		text,
	)
}

// DismissNotify clears every overlay notification.
func DismissNotify(ctx context.Context) error {
	return runHyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
}

func runHyprctl(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return nil
}
