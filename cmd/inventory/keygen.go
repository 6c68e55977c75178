package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/accesskey"
)

// keygenCmd mints an access key for the store server.
type keygenCmd struct {
	role string
	ttl  time.Duration
}

func (*keygenCmd) Name() string     { return "keygen" }
func (*keygenCmd) Synopsis() string { return "print a signed access key for the store server" }
func (*keygenCmd) Usage() string {
	return `inventory keygen [-role <role>] [-ttl <duration>]

  Signs a key with ACCESS_KEY_SECRET. Use it as STORE_ACCESS_KEY for the
  remote backend. A zero ttl never expires.
`
}

func (c *keygenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.role, "role", "service_role", "Role claim of the key.")
	f.DurationVar(&c.ttl, "ttl", 0, "Lifetime of the key, e.g. 720h.")
}

func (c *keygenCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	keys, err := accesskey.NewService(accesskey.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	key, err := keys.Issue(c.role, c.ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing key: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(key)
	return subcommands.ExitSuccess
}
