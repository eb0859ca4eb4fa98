package cli

import (
	"errors"

	flag "github.com/spf13/pflag"
)

func newSetCommand() *Command {
	return &Command{
		Flags: flag.NewFlagSet("set", flag.ContinueOnError),
		Usage: "set <key> <value>",
		Short: "Store a value under a key",
		Exec:  runSet,
	}
}

func runSet(o *IO, cfg Config, args []string) error {
	if len(args) != 2 {
		return errors.New("set requires exactly <key> and <value>")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	return store.Set(args[0], args[1])
}
