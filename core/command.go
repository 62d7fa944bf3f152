package core

import (
	"errors"
	"sync/atomic"
)

var ErrUnknownCommand = errors.New("unknown command")

// RemoteCommand is one command written by the host.
type RemoteCommand struct {
	Code byte
	Arg  byte
}

// CommandHandler executes one command.
type CommandHandler func(cmd RemoteCommand) error

// Command binds a code to its handler
type Command struct {
	Code    byte
	Name    string
	Handler CommandHandler
}

// CommandRegistry holds all registered commands. It is filled during
// NewDevice and only read by the main loop afterwards.
type CommandRegistry struct {
	commands map[byte]*Command
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[byte]*Command),
	}
}

// Register adds a command to the registry. Registering a code twice
// replaces the handler.
func (r *CommandRegistry) Register(code byte, name string, handler CommandHandler) {
	r.commands[code] = &Command{
		Code:    code,
		Name:    name,
		Handler: handler,
	}
}

// GetCommand retrieves a command by code
func (r *CommandRegistry) GetCommand(code byte) (*Command, bool) {
	cmd, ok := r.commands[code]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	return len(r.commands)
}

// Dispatch calls the appropriate command handler
func (r *CommandRegistry) Dispatch(cmd RemoteCommand) error {
	c, ok := r.GetCommand(cmd.Code)
	if !ok || c.Handler == nil {
		return ErrUnknownCommand
	}
	return c.Handler(cmd)
}

// commandSlot holds at most one pending command. A new write replaces an
// unprocessed one. Layout: bit 16 pending, bits 8-15 arg, bits 0-7 code.
type commandSlot struct {
	v uint32
}

const slotPending = 1 << 16

// Put stores cmd, replacing anything pending. Safe from interrupt context.
func (s *commandSlot) Put(cmd RemoteCommand) {
	atomic.StoreUint32(&s.v, slotPending|uint32(cmd.Arg)<<8|uint32(cmd.Code))
}

// Take removes and returns the pending command.
func (s *commandSlot) Take() (RemoteCommand, bool) {
	v := atomic.SwapUint32(&s.v, 0)
	if v&slotPending == 0 {
		return RemoteCommand{}, false
	}
	return RemoteCommand{Code: byte(v), Arg: byte(v >> 8)}, true
}

// Clear drops any pending command.
func (s *commandSlot) Clear() {
	atomic.StoreUint32(&s.v, 0)
}
