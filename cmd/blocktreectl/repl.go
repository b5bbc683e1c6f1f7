package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/gjbauer/blocktree/btree"
	"github.com/gjbauer/blocktree/cache"
)

// repl is the interactive verb loop opened on an already-formatted volume,
// in the shape of calvinalkan-agent-task's sloty REPL: a liner.State for
// readline-style input/history plus a table of commands.
type repl struct {
	tree     *btree.Tree
	c        *cache.Cache
	commands map[string]*command
	liner    *liner.State
}

func newREPL(tree *btree.Tree, c *cache.Cache) *repl {
	r := &repl{tree: tree, c: c}
	r.commands = r.buildCommands()
	return r
}

func (r *repl) buildCommands() map[string]*command {
	base := 10

	insertFlags := flag.NewFlagSet("insert", flag.ContinueOnError)
	insertFlags.IntVar(&base, "base", 10, "integer base for key/value (10 or 16)")

	searchFlags := flag.NewFlagSet("search", flag.ContinueOnError)
	searchFlags.IntVar(&base, "base", 10, "integer base for key (10 or 16)")

	deleteFlags := flag.NewFlagSet("delete", flag.ContinueOnError)
	deleteFlags.IntVar(&base, "base", 10, "integer base for key (10 or 16)")

	cmds := []*command{
		{
			Name:  "insert",
			Usage: "insert <key> <value>",
			Short: "insert a key/value pair",
			Flags: insertFlags,
			Exec: func(r *repl, args []string) error {
				if len(args) != 2 {
					return fmt.Errorf("usage: insert <key> <value>")
				}
				key, err := strconv.ParseUint(args[0], base, 64)
				if err != nil {
					return fmt.Errorf("parsing key: %w", err)
				}
				value, err := strconv.ParseUint(args[1], base, 64)
				if err != nil {
					return fmt.Errorf("parsing value: %w", err)
				}
				if err := r.tree.Insert(key, value); err != nil {
					return err
				}
				fmt.Printf("OK: inserted %d -> %d\n", key, value)
				return nil
			},
		},
		{
			Name:  "search",
			Usage: "search <key>",
			Short: "look up a key",
			Flags: searchFlags,
			Exec: func(r *repl, args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("usage: search <key>")
				}
				key, err := strconv.ParseUint(args[0], base, 64)
				if err != nil {
					return fmt.Errorf("parsing key: %w", err)
				}
				value, err := r.tree.Search(key)
				if err != nil {
					fmt.Println("(not found)")
					return nil
				}
				fmt.Printf("%d -> %d\n", key, value)
				return nil
			},
		},
		{
			Name:  "delete",
			Usage: "delete <key>",
			Short: "remove a key",
			Flags: deleteFlags,
			Exec: func(r *repl, args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("usage: delete <key>")
				}
				key, err := strconv.ParseUint(args[0], base, 64)
				if err != nil {
					return fmt.Errorf("parsing key: %w", err)
				}
				if err := r.tree.Delete(key); err != nil {
					return err
				}
				fmt.Printf("OK: deleted %d\n", key)
				return nil
			},
		},
		{
			Name:  "print",
			Usage: "print",
			Short: "dump the tree breadth-first",
			Exec: func(r *repl, args []string) error {
				dump, err := r.tree.Print()
				if err != nil {
					return err
				}
				fmt.Print(dump)
				return nil
			},
		},
		{
			Name:  "sync",
			Usage: "sync",
			Short: "flush every dirty block to disk",
			Exec: func(r *repl, args []string) error {
				if err := r.c.SyncAll(); err != nil {
					return err
				}
				fmt.Println("OK: synced")
				return nil
			},
		},
	}

	table := make(map[string]*command, len(cmds))
	for _, cmd := range cmds {
		table[cmd.Name] = cmd
	}
	return table
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".blocktreectl_history")
}

// Run starts the interactive loop. It returns nil on a clean "exit"/"quit"/EOF.
func (r *repl) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("blocktreectl - disk-resident B-tree shell")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("blocktree> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
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
		verb, args := strings.ToLower(parts[0]), parts[1:]

		switch verb {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()
			return nil
		case "help", "?":
			r.printHelp()
		default:
			cmd, ok := r.commands[verb]
			if !ok {
				fmt.Printf("unknown command: %s (type 'help' for commands)\n", verb)
				continue
			}
			cmd.run(r, args)
		}
	}

	r.saveHistory()
	return nil
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *repl) completer(line string) []string {
	names := []string{"help", "exit", "quit"}
	for name := range r.commands {
		names = append(names, name)
	}

	var completions []string
	lower := strings.ToLower(line)
	for _, name := range names {
		if strings.HasPrefix(name, lower) {
			completions = append(completions, name)
		}
	}
	return completions
}

func (r *repl) printHelp() {
	fmt.Println("Commands:")
	for _, name := range []string{"insert", "search", "delete", "print", "sync"} {
		cmd := r.commands[name]
		fmt.Printf("  %-24s %s\n", cmd.Usage, cmd.Short)
	}
	fmt.Println("  help                     show this help")
	fmt.Println("  exit / quit / q          exit")
}
