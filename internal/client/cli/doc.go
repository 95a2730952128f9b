// Package cli provides the interactive photorestore command-line client.
//
// It wires configuration, the local session cache, the backend client, the
// session store and the restoration gate into a REPL. On start the previous
// session is reconciled with the backend and a background watcher tracks
// connectivity.
//
// Commands:
//   - register, login, logout, status, refresh, profile
//   - restore <file>, trial <file>, history
//   - plans, buy [plan], subscription, cancel
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
