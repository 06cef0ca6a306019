// Package cli provides the interactive CipherSafe command-line client.
//
// It wires configuration, the local preferences store, the backend HTTP
// client and the client core (session gate, auth step machine, OTP
// controller, disclosure dialogs, item service) into a single REPL.
//
// Typical flow: the session gate checks for an existing session; without
// one the REPL shows the auth screens (login, sign-up, forgot password,
// one-time passcode). Once the passcode is verified the gate runs again and
// the protected commands become available:
//   - list / add / update / delete stored passwords
//   - fav to toggle a favorite
//   - show to reveal a password after re-entering the account password
//   - generate, import, export
//   - logout
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
