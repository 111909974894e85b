// Package cli provides the interactive password-xl command-line client.
//
// It wires configuration, the selected storage backend, the device login
// cache and a vault session behind a REPL. Typical flow: try the remembered
// login, start the idle lock watcher, then execute user commands.
//
// Key features:
//   - Login / Init / Unlock / Lock / Logout
//   - Entries: list and search, show, add, edit, favorites, recycle bin
//   - Label tree editing
//   - Note and image upload where the backend supports them
//   - Backup export and merge import, main password change
//
// Each command is offered only in the vault states where it applies.
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartIdleLockWatcher, and runREPL for details.
package cli
