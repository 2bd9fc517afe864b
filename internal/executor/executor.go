package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Executor runs the external one-shot key-generation script. Key and
// certificate material is produced outside this program; only the
// invocation lives here.
type Executor struct {
}

func (e *Executor) Execute(ctx context.Context, command string, args []string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run cmd: %w", err)
	}

	return nil
}

func New() *Executor {
	return &Executor{}
}
