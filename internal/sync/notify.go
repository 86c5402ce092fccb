package sync

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Notifier delivers a best-effort user notification. Implementations
// must not panic and report nothing back to the caller.
type Notifier interface {
	Notify(title, body string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, body string)

// Notify calls f(title, body).
func (f NotifierFunc) Notify(title, body string) { f(title, body) }

const notifyTimeout = 5 * time.Second

// DesktopNotifier shows notifications with notify-send on Linux and
// osascript on macOS. Other platforms are ignored, as is a missing tool.
type DesktopNotifier struct {
	// GOOS overrides runtime.GOOS.
	GOOS string

	// Run executes the notification command. Defaults to exec.
	Run func(ctx context.Context, name string, args ...string) error
}

// Notify shows title and body. Failures are swallowed.
func (n DesktopNotifier) Notify(title, body string) {
	goos := n.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	var name string
	var args []string
	switch goos {
	case "linux":
		name, args = "notify-send", []string{title, body}
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s",
			appleScriptString(body), appleScriptString(title))
		name, args = "osascript", []string{"-e", script}
	default:
		return
	}

	run := n.Run
	if run == nil {
		run = runCommand
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	_ = run(ctx, name, args...)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
