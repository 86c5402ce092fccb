package sync

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// commandWaitDelay bounds how long Trigger waits for output pipes held
// by orphaned children after the command is killed.
const commandWaitDelay = 200 * time.Millisecond

// Trigger runs the downstream collaborator sync after a cycle that
// archived new mail.
type Trigger interface {
	Trigger(ctx context.Context) error
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(ctx context.Context) error

// Trigger calls f(ctx).
func (f TriggerFunc) Trigger(ctx context.Context) error { return f(ctx) }

// CommandTrigger runs a shell command.
type CommandTrigger struct {
	Command string
	Dir     string
}

// Trigger runs the command with sh -c and waits for it to finish, or
// for ctx to be done.
func (c CommandTrigger) Trigger(ctx context.Context) error {
	if c.Command == "" {
		return nil
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", c.Command)
	cmd.Dir = c.Dir
	cmd.Stderr = &stderr
	cmd.WaitDelay = commandWaitDelay
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %q: %w: %s", c.Command, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
