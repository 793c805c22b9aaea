package cli

import (
	"context"
	"fmt"
	"sort"
)

// CommandFunc represents a command function signature
type CommandFunc func(ctx context.Context, app *App, args []string) error

// Command is a registered subcommand.
type Command struct {
	Name    string
	Summary string
	Run     CommandFunc
}

// Runner handles command routing and execution
type Runner struct {
	commands map[string]Command
}

// NewRunner creates a new command runner
func NewRunner() *Runner {
	return &Runner{
		commands: make(map[string]Command),
	}
}

// RegisterCommand registers a command handler
func (r *Runner) RegisterCommand(name, summary string, fn CommandFunc) {
	r.commands[name] = Command{Name: name, Summary: summary, Run: fn}
}

// Execute runs the specified command with arguments
func (r *Runner) Execute(ctx context.Context, app *App, command string, args []string) error {
	cmd, ok := r.commands[command]
	if !ok {
		return &UsageError{Message: fmt.Sprintf("unknown command: %s", command)}
	}
	return cmd.Run(ctx, app, args)
}

// GetCommands returns the registered commands sorted by name.
func (r *Runner) GetCommands() []Command {
	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// UsageError reports a malformed command line. The usage text is printed
// after the message.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// Usagef returns a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
