package main

import (
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// command is one REPL verb, parsed with its own pflag.FlagSet the way
// calvinalkan-agent-task's internal/cli.Command separates flag parsing from
// execution.
type command struct {
	Name  string
	Usage string
	Short string
	Flags *flag.FlagSet
	Exec  func(r *repl, args []string) error
}

// run parses args against the command's flags and executes it, printing
// errors the way the REPL expects (never exits the process; a REPL verb
// failing doesn't end the session).
func (c *command) run(r *repl, args []string) {
	if c.Flags != nil {
		var out strings.Builder
		c.Flags.SetOutput(&out)
		if err := c.Flags.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				c.printHelp()
				return
			}
			fmt.Printf("error: %v\n", err)
			return
		}
		args = c.Flags.Args()
	}

	if err := c.Exec(r, args); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (c *command) printHelp() {
	fmt.Printf("usage: %s\n", c.Usage)
	if c.Flags != nil && c.Flags.HasFlags() {
		fmt.Println("flags:")
		c.Flags.PrintDefaults()
	}
}
