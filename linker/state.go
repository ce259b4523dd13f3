package linker

import (
	"strings"

	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/layout"
)

// CapturableState is a piece of thread-local native state that a stub
// saves right after the native call returns.
type CapturableState uint8

// Ordinals fix the member order of the captured state struct.
const (
	GetLastError CapturableState = iota
	WSAGetLastError
	Errno

	numCapturableStates
)

var stateInfo = [numCapturableStates]struct {
	name        string
	windowsOnly bool
}{
	GetLastError:    {"GetLastError", true},
	WSAGetLastError: {"WSAGetLastError", true},
	Errno:           {"errno", false},
}

func (s CapturableState) valid() bool { return s < numCapturableStates }

// Name is the C-level name used by CaptureCallState.
func (s CapturableState) Name() string {
	if s.valid() {
		return stateInfo[s].name
	}
	return "unknown"
}

func (s CapturableState) String() string { return s.Name() }

func (s CapturableState) Ordinal() int { return int(s) }

// Mask is the bit of s in a captured state mask.
func (s CapturableState) Mask() uint32 { return 1 << s }

// Layout is the named int32 the stub stores for s.
func (s CapturableState) Layout() layout.Layout {
	return layout.Int32.WithName(s.Name())
}

// SupportedOn reports whether s exists on the GOOS-style operating system os.
func (s CapturableState) SupportedOn(os string) bool {
	return s.valid() && (!stateInfo[s].windowsOnly || os == "windows")
}

// SupportedStates lists the states capturable on os in ordinal order.
func SupportedStates(os string) []CapturableState {
	var out []CapturableState
	for s := range numCapturableStates {
		if s.SupportedOn(os) {
			out = append(out, s)
		}
	}
	return out
}

// StateByName resolves a state name on os.
func StateByName(os, name string) (CapturableState, error) {
	for _, s := range SupportedStates(os) {
		if s.Name() == name {
			return s, nil
		}
	}
	names := make([]string, 0, numCapturableStates)
	for _, s := range SupportedStates(os) {
		names = append(names, s.Name())
	}
	return 0, errors.InvalidArgument(errors.PhaseLinking, name,
		"unknown name %q, must be one of: %s", name, strings.Join(names, ", "))
}
