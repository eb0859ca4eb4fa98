package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/peterh/liner"

	"github.com/calvinalkan/kvs/pkg/kvlog"
)

func newShellCommand() *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Interactive session against the store",
		Exec:  runShell,
	}
}

func runShell(o *IO, cfg Config, args []string) error {
	if len(args) != 0 {
		return errors.New("shell takes no arguments")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	repl := &repl{store: store, io: o}

	return repl.run()
}

// repl is the interactive command loop.
type repl struct {
	store *kvlog.Store
	io    *IO
	liner *liner.State
}

// historyFile returns the path to the shell history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".kvs_history")
}

// run starts the REPL loop.
func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	// Load history
	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	r.io.Printf("kvs - log-structured key-value store (%s)\n", r.store.Path())
	r.io.Println("Type 'help' for available commands.")
	r.io.Println()

	for {
		line, err := r.liner.Prompt("kvs> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				r.io.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.io.Println("Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "set", "put":
			r.cmdSet(args)

		case "get":
			r.cmdGet(args)

		case "rm", "del", "delete":
			r.cmdRm(args)

		case "keys", "ls", "list":
			r.cmdKeys()

		case "len", "count":
			r.io.Println(r.store.Len())

		case "info", "stats":
			r.cmdInfo()

		case "compact":
			r.cmdCompact()

		case "clear", "cls":
			r.io.Printf("\033[H\033[2J")

		default:
			r.io.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

// saveHistory persists command history to disk.
func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil { //nolint:gosec // fixed path under $HOME
			_, _ = r.liner.WriteHistory(f)
			_ = f.Close()
		}
	}
}

// completer provides tab completion for commands.
func (r *repl) completer(line string) []string {
	commands := []string{
		"set", "put", "get", "rm", "del", "delete",
		"keys", "ls", "list", "len", "count",
		"info", "stats", "compact", "clear", "cls",
		"help", "exit", "quit", "q",
	}

	var matches []string

	for _, c := range commands {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			matches = append(matches, c)
		}
	}

	return matches
}

func (r *repl) printHelp() {
	r.io.Println("Commands:")
	r.io.Println("  set <key> <value>   Store a value under a key")
	r.io.Println("  get <key>           Print the value for a key")
	r.io.Println("  rm <key>            Remove a key")
	r.io.Println("  keys                List all live keys")
	r.io.Println("  len                 Count live keys")
	r.io.Println("  info                Show store statistics")
	r.io.Println("  compact             Rewrite the log keeping only live keys")
	r.io.Println("  help                Show this help")
	r.io.Println("  exit / quit / q     Exit")
}

func (r *repl) cmdSet(args []string) {
	if len(args) < 2 {
		r.io.Println("usage: set <key> <value>")

		return
	}

	// Values may contain spaces; everything after the key is the value.
	err := r.store.Set(args[0], strings.Join(args[1:], " "))
	if err != nil {
		r.io.Println("error:", err)
	}
}

func (r *repl) cmdGet(args []string) {
	if len(args) != 1 {
		r.io.Println("usage: get <key>")

		return
	}

	value, ok, err := r.store.Get(args[0])
	if err != nil {
		r.io.Println("error:", err)

		return
	}

	if !ok {
		r.io.Println("Key not found")

		return
	}

	r.io.Println(value)
}

func (r *repl) cmdRm(args []string) {
	if len(args) != 1 {
		r.io.Println("usage: rm <key>")

		return
	}

	err := r.store.Remove(args[0])
	if err != nil {
		r.io.Println("error:", err)
	}
}

func (r *repl) cmdKeys() {
	keys := r.store.Keys()
	for _, k := range keys {
		r.io.Println(k)
	}

	r.io.Printf("(%d keys)\n", len(keys))
}

func (r *repl) cmdInfo() {
	stats := r.store.Stats()

	r.io.Printf("path:          %s\n", r.store.Path())
	r.io.Printf("live keys:     %d\n", stats.Keys)
	r.io.Printf("log size:      %d bytes\n", stats.LogSizeBytes)
	r.io.Printf("compactions:   %d\n", stats.Compactions)
	r.io.Printf("wasteful ops:  %d\n", stats.WastefulOps)
}

func (r *repl) cmdCompact() {
	before := r.store.Stats().LogSizeBytes

	err := r.store.Compact()
	if err != nil {
		r.io.Println("error:", err)

		return
	}

	after := r.store.Stats()
	r.io.Printf("compacted: %d -> %d bytes (%d live keys)\n", before, after.LogSizeBytes, after.Keys)
}
