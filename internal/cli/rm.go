package cli

import (
	"errors"

	flag "github.com/spf13/pflag"
)

func newRmCommand() *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "rm <key>",
		Short: "Remove a key (errors if the key does not exist)",
		Exec:  runRm,
	}
}

func runRm(o *IO, cfg Config, args []string) error {
	if len(args) != 1 {
		return errors.New("rm requires exactly <key>")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	return store.Remove(args[0])
}
