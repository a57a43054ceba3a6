package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/mediakit/internal/bootstrap"
	"github.com/maauso/mediakit/internal/config"
	"github.com/maauso/mediakit/internal/editor"
	"github.com/maauso/mediakit/internal/task"
)

type commandContext struct {
	verbose bool
	quiet   bool
	publish bool

	build func(verbose bool) (*bootstrap.Dependencies, error)

	depsOnce sync.Once
	deps     *bootstrap.Dependencies
	depsErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{build: loadDependencies}
}

func loadDependencies(verbose bool) (*bootstrap.Dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = "warn"
	if verbose {
		cfg.LogLevel = "debug"
	}
	return bootstrap.NewDependencies(cfg, cfg.NewLoggerTo(os.Stderr))
}

func (c *commandContext) editor() (*editor.Editor, error) {
	c.depsOnce.Do(func() {
		c.deps, c.depsErr = c.build(c.verbose)
	})
	if c.depsErr != nil {
		return nil, c.depsErr
	}
	return c.deps.Editor, nil
}

// runTask submits one task and follows it to completion. An interrupt
// cancels the task; the command still waits for the engine to stop.
func (c *commandContext) runTask(cmd *cobra.Command, submit func(context.Context, *editor.Editor) (*task.Task, error)) error {
	ed, err := c.editor()
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := submit(sigCtx, ed)
	if err != nil {
		return fmt.Errorf("%s: %w", editor.StateOf(err), err)
	}

	c.follow(cmd.ErrOrStderr(), ed, t, sigCtx.Done())

	printTaskResult(cmd.OutOrStdout(), t)
	if t.Outcome() != task.OutcomeSucceeded {
		return t.Err()
	}
	return nil
}

func (c *commandContext) follow(out io.Writer, ed *editor.Editor, t *task.Task, interrupt <-chan struct{}) {
	progress := t.Progress()
	reported := false
	for {
		select {
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			if !c.quiet {
				fmt.Fprintf(out, "\r%s %s", t.Kind(), progressLine(p))
				reported = true
			}
		case <-interrupt:
			interrupt = nil
			fmt.Fprintln(out, "\ncancelling...")
			ed.Cancel()
		case <-t.Done():
			if reported {
				fmt.Fprintln(out)
			}
			return
		}
	}
}

func progressLine(p task.Progress) string {
	line := fmt.Sprintf("%5.1f%%", p.Ratio*100)
	if p.Pipelines > 1 {
		line += fmt.Sprintf(" (%d/%d)", p.Pipeline, p.Pipelines)
	}
	return line
}
