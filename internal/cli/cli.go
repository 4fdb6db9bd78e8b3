// Package cli implements the pawnctl subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/segyhp/pawn-ledger/internal/repository/redisstore"
	"github.com/segyhp/pawn-ledger/internal/service"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// SnapshotReader returns the latest cached overdue sweep, or nil.
type SnapshotReader interface {
	LatestOverdue(ctx context.Context) (*redisstore.OverdueSnapshot, error)
}

// Session is an opened ledger. Snapshots is nil without redis.
type Session struct {
	Ledger    service.Ledger
	Snapshots SnapshotReader
	Close     func()
}

// Opener connects to the configured ledger.
type Opener func(ctx context.Context) (*Session, error)

// Env is shared by every command.
type Env struct {
	Open Opener
	Out  io.Writer
	Err  io.Writer
	// Raw prints markdown as is instead of rendering it for the terminal.
	Raw bool
}

func (e *Env) stdout() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

func (e *Env) stderr() io.Writer {
	if e.Err == nil {
		return os.Stderr
	}
	return e.Err
}

func (e *Env) fail(status subcommands.ExitStatus, err error) subcommands.ExitStatus {
	fmt.Fprintf(e.stderr(), "Error: %v\n", err)
	return status
}

// printMarkdown renders md for the terminal with glamour.
func (e *Env) printMarkdown(md string) error {
	if e.Raw {
		_, err := io.WriteString(e.stdout(), md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(e.stdout(), out)
	return err
}

// withLedger opens a session for the duration of fn.
func (e *Env) withLedger(ctx context.Context, fn func(*Session) error) subcommands.ExitStatus {
	s, err := e.Open(ctx)
	if err != nil {
		return e.fail(subcommands.ExitFailure, err)
	}
	if s.Close != nil {
		defer s.Close()
	}
	if err := fn(s); err != nil {
		return e.fail(subcommands.ExitFailure, err)
	}
	return subcommands.ExitSuccess
}

// Commands returns every pawnctl subcommand bound to env.
func Commands(env *Env) []subcommands.Command {
	return []subcommands.Command{
		&accrualCmd{env: env},
		&statementCmd{env: env},
		&overdueCmd{env: env},
		&dueCmd{env: env},
		&summaryCmd{env: env},
		&adviseCmd{env: env},
	}
}

// Register adds the commands to c, grouped the way `pawnctl help` lists them.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")
	for _, cmd := range Commands(env) {
		group := "ledger"
		if cmd.Name() == "advise" || cmd.Name() == "accrual" {
			group = "tools"
		}
		c.Register(cmd, group)
	}
}

// Completion describes the command line for shell completion.
func Completion(env *Env) *complete.Command {
	root := &complete.Command{
		Sub: map[string]*complete.Command{},
		Flags: map[string]complete.Predictor{
			"env":  predict.Files("*.env"),
			"raw":  predict.Nothing,
			"help": predict.Nothing,
		},
	}
	for _, cmd := range Commands(env) {
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		cmd.SetFlags(fs)
		sub := &complete.Command{Flags: map[string]complete.Predictor{}}
		fs.VisitAll(func(f *flag.Flag) {
			sub.Flags[f.Name] = flagPredictor(cmd.Name(), f.Name)
		})
		root.Sub[cmd.Name()] = sub
	}
	root.Sub["help"] = &complete.Command{Args: predict.Set(commandNames(env))}
	return root
}

func flagPredictor(cmd, flagName string) complete.Predictor {
	switch {
	case cmd == "advise" && flagName == "image":
		return predict.Files("*")
	case cmd == "advise" && flagName == "condition":
		return predict.Set{"new", "like new", "good", "fair", "poor"}
	default:
		return predict.Something
	}
}

func commandNames(env *Env) []string {
	var names []string
	for _, cmd := range Commands(env) {
		names = append(names, cmd.Name())
	}
	return names
}
