// Package undo implements the editor's linear undo history.
package undo

import (
	"go.uber.org/zap"
)

// DefaultCapacity is the number of commands kept when none is configured.
const DefaultCapacity = 30

// Command is a single undoable action.
type Command interface {
	// Description is the label shown for the action.
	Description() string
	// Apply performs (or re-performs) the action.
	Apply() error
	// Undo reverts the action.
	Undo() error
}

// Stack is a bounded linear history. Commands below index are applied;
// commands at or above it form the redo tail.
type Stack struct {
	commands []Command
	index    int
	capacity int
	log      *zap.Logger
}

// NewStack creates a stack holding at most capacity commands.
// A capacity below 1 uses DefaultCapacity.
func NewStack(capacity int, log *zap.Logger) *Stack {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stack{capacity: capacity, log: log}
}

// Push applies cmd and records it. The redo tail is discarded and the oldest
// command is evicted once the stack is over capacity. A command whose Apply
// fails is not recorded.
func (s *Stack) Push(cmd Command) error {
	if err := cmd.Apply(); err != nil {
		return err
	}

	if dropped := len(s.commands) - s.index; dropped > 0 {
		s.log.Debug("discarding redo tail", zap.Int("commands", dropped))
	}
	s.commands = append(s.commands[:s.index], cmd)

	if len(s.commands) > s.capacity {
		evicted := s.commands[0]
		s.commands[0] = nil
		s.commands = s.commands[1:]
		s.log.Debug("evicted oldest command", zap.String("description", evicted.Description()))
	}
	s.index = len(s.commands)

	s.log.Debug("pushed command",
		zap.String("description", cmd.Description()),
		zap.Int("depth", s.index),
	)
	return nil
}

// Undo reverts the most recent applied command. It reports false when there
// is nothing to undo. On error the history is left unchanged.
func (s *Stack) Undo() (bool, error) {
	if !s.CanUndo() {
		return false, nil
	}
	cmd := s.commands[s.index-1]
	if err := cmd.Undo(); err != nil {
		return true, err
	}
	s.index--
	s.log.Debug("undo", zap.String("description", cmd.Description()))
	return true, nil
}

// Redo re-applies the next command of the redo tail. It reports false when
// there is nothing to redo.
func (s *Stack) Redo() (bool, error) {
	if !s.CanRedo() {
		return false, nil
	}
	cmd := s.commands[s.index]
	if err := cmd.Apply(); err != nil {
		return true, err
	}
	s.index++
	s.log.Debug("redo", zap.String("description", cmd.Description()))
	return true, nil
}

// CanUndo reports whether Undo has a command to revert.
func (s *Stack) CanUndo() bool { return s.index > 0 }

// CanRedo reports whether Redo has a command to apply.
func (s *Stack) CanRedo() bool { return s.index < len(s.commands) }

// Len returns the number of recorded commands, including the redo tail.
func (s *Stack) Len() int { return len(s.commands) }

// Index returns the number of applied commands.
func (s *Stack) Index() int { return s.index }

// Capacity returns the maximum number of recorded commands.
func (s *Stack) Capacity() int { return s.capacity }

// UndoText returns the description of the command Undo would revert.
func (s *Stack) UndoText() string {
	if !s.CanUndo() {
		return ""
	}
	return s.commands[s.index-1].Description()
}

// RedoText returns the description of the command Redo would apply.
func (s *Stack) RedoText() string {
	if !s.CanRedo() {
		return ""
	}
	return s.commands[s.index].Description()
}

// Clear drops every command.
func (s *Stack) Clear() {
	s.commands = nil
	s.index = 0
}
