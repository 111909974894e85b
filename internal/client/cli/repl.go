package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/client/vault"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// Command is one REPL command. It is offered only in the listed states.
type Command struct {
	Name   string
	Usage  string
	States []vault.State
	Run    func(ctx context.Context, args []string) error
}

// execIface defines the minimal surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	State() vault.State
	Commands() []Command
	Touch()
}

// runREPL reads one command per line from reader and dispatches it. The loop
// exits on EOF or when the user types "exit" or "quit".
//
// "help" lists the commands legal in the current vault state. A command
// failing prints its classified message and the loop goes on; a stale vault
// additionally suggests "reload".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pxl (%s) > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		a.Touch()

		name, args := parts[0], parts[1:]
		switch name {
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "help":
			printlnFn(help(a))
			continue
		}

		cmd, ok := lookup(a.Commands(), name)
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}
		if !slices.Contains(cmd.States, a.State()) {
			printlnFn(fmt.Sprintf("%s is not available while %s", name, a.State()))
			continue
		}

		if err := cmd.Run(ctx, args); err != nil {
			printlnFn("Error:", storage.UserMessage(err))
			if vault.IsStale(err) {
				printlnFn("The vault was changed elsewhere, run 'reload'.")
			}
		}
	}
}

func lookup(cmds []Command, name string) (Command, bool) {
	for _, c := range cmds {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

func help(a execIface) string {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, c := range a.Commands() {
		if slices.Contains(c.States, a.State()) {
			b.WriteString("\n  ")
			b.WriteString(c.Usage)
		}
	}
	b.WriteString("\n  help\n  exit")
	return b.String()
}
