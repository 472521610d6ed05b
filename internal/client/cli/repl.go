package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Signup(ctx context.Context) error
	Signin(ctx context.Context) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	ShowTokens(ctx context.Context) error
}

// runREPL reads commands line by line and dispatches them to a. The loop
// exits at end of input, on "exit"/"quit", or when ctx is done. Prompts of
// the commands read from the same reader, so it must not be wrapped in a
// separately buffered scanner.
//
// Command handlers report their own failures, so their errors are dropped here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	printlnFn("Welcome to GophAuth CLI (type 'help' for commands)")

	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(fmt.Sprintf("gauth %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: refresh, tokens, logout, signin, exit")
			} else {
				printlnFn("Available commands: signup, signin, exit")
			}

		case "signup", "register":
			_ = a.Signup(ctx)

		case "signin", "login":
			_ = a.Signin(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "tokens":
			_ = a.ShowTokens(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
