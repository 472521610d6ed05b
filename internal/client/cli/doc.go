// Package cli provides the interactive GophAuth command-line client.
//
// It wires configuration and the gRPC client into a small REPL:
//
//	signup    create an account and start a session
//	signin    start a session for an existing account
//	refresh   rotate the token pair
//	logout    end the session
//	tokens    print the current token pair
//	help      list commands
//	exit      leave the program
//
// Passwords are read from the terminal without echo. The REPL is started via
// App.Run(ctx), which blocks until the user exits or input ends.
package cli
