package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests use a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Refresh(ctx context.Context) error
	Profile(ctx context.Context) error
	Restore(ctx context.Context, args []string) error
	Trial(ctx context.Context, args []string) error
	History(ctx context.Context) error
	Plans(ctx context.Context) error
	Buy(ctx context.Context, args []string) error
	Subscription(ctx context.Context) error
	Cancel(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// It returns on EOF or when the user types "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report them
// to the user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("photorestore %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, refresh, profile, restore <file>, trial <file>, history, plans, buy [plan], subscription, cancel, logout, exit")
			} else {
				printlnFn("Available commands: register, login, trial <file>, plans, history, exit")
			}

		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "status", "whoami", "credits":
			_ = a.Status(ctx)
		case "refresh":
			_ = a.Refresh(ctx)
		case "profile":
			_ = a.Profile(ctx)
		case "restore":
			_ = a.Restore(ctx, args)
		case "trial":
			_ = a.Trial(ctx, args)
		case "history":
			_ = a.History(ctx)
		case "plans":
			_ = a.Plans(ctx)
		case "buy":
			_ = a.Buy(ctx, args)
		case "subscription":
			_ = a.Subscription(ctx)
		case "cancel":
			_ = a.Cancel(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
