package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"alumet/control"
	"alumet/eventbus"
	"alumet/naming"
)

var execCmd = &cobra.Command{
	Use:                "exec PROGRAM [ARGS...]",
	Short:              "Run the pipeline alongside a child process, and measure it one last time after it exits",
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExec(cmd.Context(), args)
	},
}

func runExec(ctx context.Context, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	waitForSignal(cancel)

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	bus := eventbus.New(nil)
	child := exec.CommandContext(ctx, args[0], args[1:]...)
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	child.Stdin = os.Stdin

	if err := child.Start(); err != nil {
		a.shutdown(context.Background())
		return explainExecFailure(args[0], err)
	}

	pid := child.Process.Pid
	_ = bus.Publish(eventbus.Event{
		Category: eventbus.CategoryStartConsumerMeasurement,
		Type:     "exec",
		Fields:   map[string]any{"pid": pid},
	})

	waitErr := child.Wait()

	_ = bus.Publish(eventbus.Event{
		Category: eventbus.CategoryEndConsumerMeasurement,
		Type:     "exec",
		Fields:   map[string]any{"pid": pid},
	})

	// Trigger one final measurement pass on every source before tearing
	// the pipeline down, so the child's last moments are captured.
	if ctrl := a.pipe.Control(); ctrl != nil {
		_ = ctrl.SendWait(control.Message{Kind: control.KindSource, Selector: naming.All(), TriggerNow: true}, time.Second)
		time.Sleep(200 * time.Millisecond)
	}

	a.shutdown(context.Background())

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("exec: wait for %s: %w", args[0], waitErr)
	}
	return nil
}

// explainExecFailure adds a hint to common failures starting a child
// process, the way a shell would.
func explainExecFailure(program string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("exec: %s: command not found (hint: if it is a file in the current directory, prepend \"./\"): %w", program, err)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("exec: %s: permission denied (hint: try chmod +x %s): %w", program, program, err)
	}
	return fmt.Errorf("exec: start %s: %w", program, err)
}
