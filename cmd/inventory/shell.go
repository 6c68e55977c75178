package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"golang.org/x/term"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/backend"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/report"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/shell"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-inventory-go/pkg/utilities"
)

// shellCmd runs the interactive ledger against the configured backend.
type shellCmd struct {
	backend string
}

func (*shellCmd) Name() string     { return "shell" }
func (*shellCmd) Synopsis() string { return "open the interactive inventory ledger" }
func (*shellCmd) Usage() string {
	return `inventory shell [-backend embedded|postgres|remote|memory]

  Opens an interactive session: register, login, add records and view the
  ledger. The backend defaults to STORE_BACKEND. Logs go to LOG_FILE
  (default inventory.log).
`
}

func (c *shellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.backend, "backend", "", "Storage backend. Overrides STORE_BACKEND.")
}

func (c *shellCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logCfg := utilities.ConfigFromEnv()
	if logCfg.File == "" {
		// keep log lines off the prompt
		logCfg.File = "inventory.log"
	}
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer lg.Sync()
	logger := lg.Sugar()

	cfg := backend.ConfigFromEnv()
	if c.backend != "" {
		cfg.Kind = backend.Kind(c.backend)
	}
	store, closer, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closer.Close()

	users, err := user.NewService(store, user.ConfigFromEnv(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring credentials: %v\n", err)
		return subcommands.ExitFailure
	}
	ctrl := session.NewController(users, inventory.NewService(store, nil, logger), logger)

	fd := -1
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fd = int(os.Stdin.Fd())
	}
	sh := shell.New(ctrl, os.Stdin, os.Stdout, shell.Options{Report: report.ConfigFromEnv(), TerminalFd: fd}, logger)
	if err := sh.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
