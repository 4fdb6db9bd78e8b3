// Command pawnctl queries the pawn ledger from a terminal.
//
// Shell completion is installed with COMP_INSTALL=1 pawnctl.
package main

import (
	"context"
	"flag"
	"os"
	"path"
	"time"

	"github.com/segyhp/pawn-ledger/internal/app"
	"github.com/segyhp/pawn-ledger/internal/cli"
	"github.com/segyhp/pawn-ledger/internal/config"
	"github.com/segyhp/pawn-ledger/internal/repository/redisstore"
	"github.com/segyhp/pawn-ledger/pkg/logger"

	"github.com/google/subcommands"
)

const openTimeout = 15 * time.Second

func main() {
	var (
		envFile string
		raw     bool
	)
	flag.StringVar(&envFile, "env", "", "env file to load instead of .env")
	flag.BoolVar(&raw, "raw", false, "print markdown without terminal styling")

	env := &cli.Env{}
	env.Open = func(ctx context.Context) (*cli.Session, error) {
		return open(ctx, envFile)
	}

	cli.Completion(env).Complete(path.Base(os.Args[0]))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander, env)
	flag.Parse()
	env.Raw = raw

	os.Exit(int(commander.Execute(context.Background())))
}

func open(ctx context.Context, envFile string) (*cli.Session, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	// Only warnings reach the terminal; stdout is reserved for output.
	log := logger.NewWithWriter(os.Stderr, "warn", "text")

	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	s := &cli.Session{Ledger: a.Ledger, Close: a.Close}
	if a.Redis != nil {
		s.Snapshots = redisstore.NewSnapshotStore(a.Redis, 0)
	}
	return s, nil
}
