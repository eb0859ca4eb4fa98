package cli

import (
	"errors"

	flag "github.com/spf13/pflag"
)

func newCompactCommand() *Command {
	return &Command{
		Flags: flag.NewFlagSet("compact", flag.ContinueOnError),
		Usage: "compact",
		Short: "Rewrite the log keeping only live keys",
		Exec:  runCompact,
	}
}

func runCompact(o *IO, cfg Config, args []string) error {
	if len(args) != 0 {
		return errors.New("compact takes no arguments")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	before := store.Stats().LogSizeBytes

	err = store.Compact()
	if err != nil {
		return err
	}

	after := store.Stats()
	o.Printf("compacted %s: %d -> %d bytes (%d live keys)\n",
		store.Path(), before, after.LogSizeBytes, after.Keys)

	return nil
}
