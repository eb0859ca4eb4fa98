package cli

import (
	"errors"

	flag "github.com/spf13/pflag"
)

func newGetCommand() *Command {
	return &Command{
		Flags: flag.NewFlagSet("get", flag.ContinueOnError),
		Usage: "get <key>",
		Short: "Print the value stored under a key",
		Exec:  runGet,
	}
}

func runGet(o *IO, cfg Config, args []string) error {
	if len(args) != 1 {
		return errors.New("get requires exactly <key>")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	value, ok, err := store.Get(args[0])
	if err != nil {
		return err
	}

	// Absence is a normal outcome: print the marker and exit 0.
	if !ok {
		o.Println("Key not found")

		return nil
	}

	o.Println(value)

	return nil
}
