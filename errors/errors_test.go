package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type named string

func (n named) String() string { return string(n) }

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseLayout,
				Kind:   KindInvalidArgument,
				Path:   []string{"point", "x"},
				Layout: "i4(x)",
				Detail: "invalid alignment 3",
			},
			contains: []string{"[layout]", "invalid_argument", "point.x", "i4(x)", "invalid alignment 3"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLinking,
				Kind:  KindDuplicate,
			},
			contains: []string{"[linking]", "duplicate"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindInvalidData,
				Detail: "truncated descriptor",
				Cause:  errors.New("unexpected EOF"),
			},
			contains: []string{"[decode]", "invalid_data", "truncated descriptor", "caused by", "unexpected EOF"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindOverflow,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseLinking,
		Kind:  KindOutOfBounds,
		Path:  []string{"options"},
	}

	if !err.Is(&Error{Phase: PhaseLinking, Kind: KindOutOfBounds}) {
		t.Error("Is should match same phase and kind")
	}
	if !err.Is(&Error{Kind: KindOutOfBounds}) {
		t.Error("Is should match kind when target phase is empty")
	}
	if err.Is(&Error{Phase: PhaseLayout, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseLinking, Kind: KindDuplicate}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("downcall: %w", err)
	if !errors.Is(wrapped, &Error{Kind: KindOutOfBounds}) {
		t.Error("errors.Is should see through wrapping")
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Unsupported(PhaseLayout, "byte size of 3-bit layout"))
	if !IsKind(err, KindUnsupported) {
		t.Error("IsKind should find unsupported")
	}
	if IsKind(err, KindInvalidArgument) {
		t.Error("IsKind should not match another kind")
	}
	if IsKind(errors.New("plain"), KindUnsupported) {
		t.Error("IsKind should be false for foreign errors")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseLayout, KindInvalidArgument).
		Path("header", "flags").
		Layout(named("u2(flags)")).
		Value(3).
		Cause(cause).
		Detail("expected power of two, got %d", 3).
		Build()

	if err.Phase != PhaseLayout {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseLayout)
	}
	if err.Kind != KindInvalidArgument {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidArgument)
	}
	if len(err.Path) != 2 || err.Path[0] != "header" || err.Path[1] != "flags" {
		t.Errorf("Path = %v, want [header flags]", err.Path)
	}
	if err.Layout != "u2(flags)" {
		t.Errorf("Layout = %q, want u2(flags)", err.Layout)
	}
	if err.Value != 3 {
		t.Errorf("Value = %v, want 3", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected power of two, got 3" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidArgument", func(t *testing.T) {
		err := InvalidArgument(PhaseLayout, 12, "invalid alignment %d", 12)
		if err.Kind != KindInvalidArgument {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidArgument)
		}
		if err.Value != 12 || !strings.Contains(err.Detail, "12") {
			t.Errorf("Value=%v Detail=%q", err.Value, err.Detail)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseArrange, "by-value struct argument")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := Duplicate(PhaseLinking, "option FirstVariadicArg[1]")
		if err.Kind != KindDuplicate {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDuplicate)
		}
		if !strings.Contains(err.Error(), "FirstVariadicArg[1]") {
			t.Errorf("message %q should name the option", err.Error())
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseLinking, []string{"args"}, 4, 3)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != 4 {
			t.Errorf("Value = %v, want 4", err.Value)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseABI, "architecture", "mips")
		if err.Kind != KindNotFound || !strings.Contains(err.Detail, `"mips"`) {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseLayout, []string{"seq"}, uint64(1<<63), "uint64 bits")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("short buffer")
		err := Wrap(PhaseDecode, KindInvalidData, cause, "read header")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep the cause in the chain")
		}
	})
}
