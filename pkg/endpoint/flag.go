package endpoint

import "context"

// Flag is a boolean AwaitableVar, used for the connected latch.
type Flag struct {
	v *AwaitableVar[bool]
}

// NewFlag creates a Flag with the given initial state.
func NewFlag(initial bool) *Flag {
	return &Flag{v: NewAwaitableVar(initial)}
}

// Set sets the flag to true.
func (f *Flag) Set() { f.v.Set(true) }

// Clear sets the flag to false.
func (f *Flag) Clear() { f.v.Set(false) }

// IsSet reports whether the flag is currently true.
func (f *Flag) IsSet() bool { return f.v.Value() }

// IsClear reports whether the flag is currently false.
func (f *Flag) IsClear() bool { return !f.IsSet() }

// Wait blocks until the flag is set.
func (f *Flag) Wait(ctx context.Context) error { return f.v.WaitFor(ctx, true) }

// WaitClear blocks until the flag is cleared.
func (f *Flag) WaitClear(ctx context.Context) error { return f.v.WaitFor(ctx, false) }
