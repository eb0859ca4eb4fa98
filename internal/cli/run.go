package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
)

// Run is the main entry point for the kvs command. args is the full
// argument vector including the program name. Returns the process exit
// code: 0 on success, 1 on any surfaced error.
func Run(out, errOut io.Writer, args []string) int {
	o := NewIO(out, errOut)

	globals := flag.NewFlagSet("kvs", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{}) // discard pflag output

	dbPath := globals.StringP("db", "d", "", "log file or directory (default data.log)")
	configPath := globals.StringP("config", "c", "", "config file (default .kvs.json if present)")

	err := globals.Parse(args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(o)

			return 0
		}

		o.ErrPrintln("error:", err)

		return 1
	}

	remaining := globals.Args()
	if len(remaining) == 0 {
		printUsage(o)

		return 0
	}

	workDir, err := os.Getwd()
	if err != nil {
		o.ErrPrintln("error: cannot get working directory:", err)

		return 1
	}

	cfg, err := LoadConfig(workDir, *configPath)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	if *dbPath != "" {
		cfg.Path = *dbPath
	}

	name := remaining[0]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(o)

		return 0
	}

	cmd, ok := commands()[name]
	if !ok {
		o.ErrPrintln("error: unknown command:", name)
		printUsage(o)

		return 1
	}

	return cmd.Run(o, cfg, remaining[1:])
}

// commands returns the command table keyed by name.
func commands() map[string]*Command {
	cmds := []*Command{
		newSetCommand(),
		newGetCommand(),
		newRmCommand(),
		newCompactCommand(),
		newShellCommand(),
	}

	table := make(map[string]*Command, len(cmds))
	for _, c := range cmds {
		table[c.Name()] = c
	}

	return table
}

func printUsage(o *IO) {
	o.Println("Usage: kvs [flags] <command> [args]")
	o.Println()
	o.Println("Commands:")

	for _, c := range []*Command{
		newSetCommand(),
		newGetCommand(),
		newRmCommand(),
		newCompactCommand(),
		newShellCommand(),
	} {
		o.Println(c.HelpLine())
	}

	o.Println()
	o.Println("Flags:")
	o.Println("  -d, --db <path>        log file or directory (default data.log)")
	o.Println("  -c, --config <file>    config file (default .kvs.json if present)")
}
