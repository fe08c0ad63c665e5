package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	sync(ctx context.Context)
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Home(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for one planillas tab.
//
// Each line is read from reader and its first token is the command. Before
// the command is evaluated, a.sync applies every change other tabs made to
// the storage scope, so a logout elsewhere is seen before a command that
// needs a session. The loop exits on EOF, on a cancelled ctx, or when the
// user types "exit" or "quit".
//
//	Not logged in:
//	  - help             show available commands
//	  - login            log in
//	  - register         create an account (directory mode only)
//	  - exit | quit      leave the program
//
//	Logged in:
//	  - help             show available commands
//	  - home             show the dashboard
//	  - whoami           show the current account
//	  - logout           log out in every tab
//	  - exit | quit      leave the program
//
// Errors returned by command handlers are ignored here; handlers report
// them to the user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for ctx.Err() == nil {
		printlnFn(fmt.Sprintf("planillas %s> ", statusFn()))

		line, readErr := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if readErr != nil {
				return
			}
			continue
		}
		cmd := parts[0]

		a.sync(ctx)

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: home, whoami, logout, exit")
			} else {
				printlnFn("Available commands: login, register, exit")
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "login", "register":
			if a.isLoggedIn() {
				printlnFn("Ya iniciaste sesión. Usa 'logout' primero.")
				break
			}
			if cmd == "login" {
				_ = a.Login(ctx)
			} else {
				_ = a.Register(ctx)
			}

		case "home", "whoami", "logout":
			if !a.isLoggedIn() {
				printlnFn("Inicia sesión primero.")
				break
			}
			switch cmd {
			case "home":
				_ = a.Home(ctx)
			case "whoami":
				_ = a.WhoAmI(ctx)
			default:
				_ = a.Logout(ctx)
			}

		default:
			printlnFn("Unknown command:", cmd)
		}

		if readErr != nil {
			return
		}
	}
}
