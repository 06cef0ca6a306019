package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/ciphersafe/internal/client/auth"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	authStep() auth.Step
	settle(ctx context.Context)
	report(err error)

	Login(ctx context.Context) error
	SignUp(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	Verify(ctx context.Context, args []string) error
	Resend(ctx context.Context) error
	Navigate(to string) error
	Forget(ctx context.Context) error

	List(ctx context.Context) error
	Add(ctx context.Context) error
	Update(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Favorite(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Generate(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
}

var authHelp = map[string]string{
	"login":           "Available commands: login, signup, forgot, forget, exit",
	"signup":          "Available commands: register, back, exit",
	"forgot-password": "Available commands: send, back, exit",
	"otp":             "Available commands: verify <code>, resend, exit",
}

const protectedHelp = "Available commands: (l)ist, add, update <id>, delete <id>, fav <id>, show <id>, " +
	"generate [length], import <file>, export <file>, whoami, logout, exit"

// runREPL starts a simple read–eval–print loop for the CipherSafe CLI.
//
// Before every prompt the pending session check (if any) is settled. It then
// reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The commands available depend on whether
// the session is verified and, before that, on the current auth screen:
//
//	Login screen:      login, signup, forgot, forget
//	Sign-up screen:    register, back
//	Forgot password:   send, back
//	Passcode screen:   verify <code>, resend
//
//	Signed in:
//	  - list | l              - list stored passwords
//	  - add                   - add a password
//	  - update <id>           - edit a password
//	  - delete <id>           - delete a password (asks for the account password)
//	  - fav <id>              - toggle favorite
//	  - show <id>             - reveal a password (asks for the account password)
//	  - generate [length]     - generate a random password
//	  - import <file>         - import an encrypted export
//	  - export <file>         - write an encrypted export
//	  - whoami                - show the session
//	  - logout                - end the session
//
// help, exit and quit work everywhere. Handler errors are passed to
// a.report, which prints what the handler did not already show. The loop
// exits on EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		a.settle(ctx)

		printlnFn(fmt.Sprintf("cs %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
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
				printlnFn(protectedHelp)
			} else {
				printlnFn(authHelp[a.authStep().Name()])
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		if a.isLoggedIn() {
			a.report(dispatchProtected(ctx, a, cmd, args))
		} else {
			a.report(dispatchAuth(ctx, a, cmd, args))
		}
	}
}

var errUnknownCommand = errors.New("unknown command, type 'help'")

func dispatchAuth(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.Login(ctx)
	case "register":
		return a.SignUp(ctx)
	case "send":
		return a.ForgotPassword(ctx)
	case "verify":
		return a.Verify(ctx, args)
	case "resend":
		return a.Resend(ctx)
	case "signup", "forgot", "back":
		return a.Navigate(cmd)
	case "forget":
		return a.Forget(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}

func dispatchProtected(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "l", "list":
		return a.List(ctx)
	case "add":
		return a.Add(ctx)
	case "update":
		return a.Update(ctx, args)
	case "delete":
		return a.Delete(ctx, args)
	case "fav":
		return a.Favorite(ctx, args)
	case "show":
		return a.Show(ctx, args)
	case "generate":
		return a.Generate(ctx, args)
	case "import":
		return a.Import(ctx, args)
	case "export":
		return a.Export(ctx, args)
	case "whoami":
		return a.WhoAmI(ctx)
	case "logout":
		return a.Logout(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}
