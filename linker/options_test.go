package linker

import (
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/layout"
)

func threeArgs() *FunctionDescriptor {
	return Of(layout.Int32, layout.Address, layout.Int32, layout.Int64)
}

func TestForDowncallEmptyIsSingleton(t *testing.T) {
	a, err := ForDowncall(threeArgs())
	if err != nil {
		t.Fatal(err)
	}
	b, err := ForDowncall(OfVoid())
	if err != nil {
		t.Fatal(err)
	}
	if a != b || a != Empty() {
		t.Error("empty option sets must share one instance")
	}
	if a.Len() != 0 || a.IsVariadicFunction() || a.HasCapturedCallState() {
		t.Errorf("empty set reports options: %s", a)
	}
	if u, _ := ForUpcall(threeArgs()); u != a {
		t.Error("upcalls share the empty instance")
	}
}

func TestFirstVariadicArgBounds(t *testing.T) {
	desc := threeArgs()
	for k := -1; k <= 4; k++ {
		_, err := ForDowncall(desc, FirstVariadicArg(k))
		valid := k >= 0 && k <= 3
		if valid && err != nil {
			t.Errorf("index %d: unexpected error %v", k, err)
		}
		if !valid {
			if !errors.IsKind(err, errors.KindOutOfBounds) {
				t.Errorf("index %d: got %v, want out of bounds", k, err)
				continue
			}
			msg := err.Error()
			if !strings.Contains(msg, desc.String()) {
				t.Errorf("index %d: error %q does not name the descriptor", k, msg)
			}
		}
	}
}

func TestDuplicateOption(t *testing.T) {
	_, err := ForDowncall(threeArgs(), FirstVariadicArg(0), FirstVariadicArg(1))
	if !errors.IsKind(err, errors.KindDuplicate) {
		t.Fatalf("got %v, want duplicate", err)
	}
	if !strings.Contains(err.Error(), "firstVariadicArg(1)") {
		t.Errorf("error %q does not name the offending option", err)
	}

	_, err = ForDowncall(threeArgs(), CaptureStates(Errno), CaptureStates(Errno))
	if !errors.IsKind(err, errors.KindDuplicate) {
		t.Errorf("repeated capture: got %v", err)
	}
}

func TestNilOption(t *testing.T) {
	var capture *CaptureCallStateOption
	if _, err := ForDowncall(threeArgs(), capture); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Errorf("typed nil: got %v", err)
	}
	if _, err := ForDowncall(threeArgs(), nil); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Errorf("nil: got %v", err)
	}
}

func TestNilDescriptor(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"no options", nil},
		{"variadic", []Option{FirstVariadicArg(0)}},
		{"capture", []Option{CaptureStates(Errno)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ForDowncall(nil, tc.opts...); !errors.IsKind(err, errors.KindInvalidArgument) {
				t.Errorf("downcall: got %v, want invalid argument", err)
			}
			if _, err := ForUpcall(nil, tc.opts...); !errors.IsKind(err, errors.KindInvalidArgument) {
				t.Errorf("upcall: got %v, want invalid argument", err)
			}
		})
	}
}

func TestSetLoggerDuringValidation(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 200 {
			SetLogger(zap.NewNop())
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			if _, err := ForDowncall(threeArgs(), FirstVariadicArg(9)); !errors.IsKind(err, errors.KindOutOfBounds) {
				t.Errorf("got %v, want out of bounds", err)
				return
			}
		}
	}()
	wg.Wait()

	SetLogger(nil)
	if Logger() == nil {
		t.Error("nil logger must fall back to a no-op logger")
	}
}

func TestIsVarargsIndex(t *testing.T) {
	o, err := ForDowncall(threeArgs(), FirstVariadicArg(2))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if got, want := o.IsVarargsIndex(i), i >= 2; got != want {
			t.Errorf("IsVarargsIndex(%d) = %v, want %v", i, got, want)
		}
	}
	if first, ok := o.FirstVariadicArgIndex(); !ok || first != 2 {
		t.Errorf("FirstVariadicArgIndex: got %d, %v", first, ok)
	}
}

func TestCaptureLayoutOrdinalOrder(t *testing.T) {
	opt := CaptureStates(WSAGetLastError, GetLastError)
	l := opt.Layout()

	var names []string
	for _, m := range l.Members() {
		name, _ := m.Name()
		names = append(names, name)
	}
	if diff := cmp.Diff([]string{"GetLastError", "WSAGetLastError"}, names); diff != "" {
		t.Errorf("members (-want +got):\n%s", diff)
	}
	if !l.Equal(CaptureStates(GetLastError, WSAGetLastError).Layout()) {
		t.Error("layout must not depend on request order")
	}
	if l.BitSize() != 64 || l.BitAlignment() != 32 {
		t.Errorf("size/align: got %d/%d", l.BitSize(), l.BitAlignment())
	}
}

func TestEndToEndVariadicWithErrno(t *testing.T) {
	desc := Of(layout.Int32, layout.Address, layout.Int32, layout.Int32).
		AppendArgumentLayouts(layout.Int32, layout.Int32)

	o, err := ForDowncall(desc, FirstVariadicArg(3), CaptureStates(Errno))
	if err != nil {
		t.Fatal(err)
	}
	if o.IsVarargsIndex(2) || !o.IsVarargsIndex(3) {
		t.Error("variadic boundary should sit at 3")
	}
	if !o.HasCapturedCallState() {
		t.Fatal("expected captured call state")
	}
	states := slices.Collect(o.CapturedCallState())
	if diff := cmp.Diff([]CapturableState{Errno}, states); diff != "" {
		t.Errorf("states (-want +got):\n%s", diff)
	}
	l, ok := o.CaptureStateLayout()
	if !ok || l.MemberCount() != 1 {
		t.Fatalf("layout: got %v", l)
	}
	size, err := l.ByteSize()
	if err != nil || size != 4 || l.ByteAlignment() != 4 {
		t.Errorf("layout size/align: got %d/%d (%v)", size, l.ByteAlignment(), err)
	}
	if o.CapturedCallStateMask() != Errno.Mask() {
		t.Errorf("mask: got %b", o.CapturedCallStateMask())
	}
}

func TestCapturedCallStateEmpty(t *testing.T) {
	o, err := ForDowncall(threeArgs(), FirstVariadicArg(1))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(slices.Collect(o.CapturedCallState())); n != 0 {
		t.Errorf("got %d states", n)
	}
	if _, ok := o.CaptureStateLayout(); ok {
		t.Error("no layout without capture option")
	}
}

func TestForUpcallRejectsOptions(t *testing.T) {
	_, err := ForUpcall(threeArgs(), FirstVariadicArg(1))
	if !errors.IsKind(err, errors.KindUnsupported) {
		t.Errorf("got %v, want unsupported", err)
	}
}

func TestOptionsEquality(t *testing.T) {
	desc := threeArgs()
	a, _ := ForDowncall(desc, FirstVariadicArg(1), CaptureStates(Errno))
	b, _ := ForDowncall(desc, CaptureStates(Errno), FirstVariadicArg(1))
	c, _ := ForDowncall(desc, FirstVariadicArg(2), CaptureStates(Errno))

	if !a.Equal(b) || a.Hash() != b.Hash() {
		t.Error("option order must not matter")
	}
	if a.Equal(c) {
		t.Error("different index must differ")
	}
	if a.String() != "Options[firstVariadicArg(1), captureCallState(errno)]" {
		t.Errorf("String: got %q", a.String())
	}
}

func TestCaptureCallStateNames(t *testing.T) {
	tests := []struct {
		os    string
		names []string
		mask  uint32
		err   bool
	}{
		{"linux", []string{"errno"}, 1 << 2, false},
		{"linux", []string{"GetLastError"}, 0, true},
		{"windows", []string{"GetLastError", "errno", "GetLastError"}, 0b101, false},
		{"windows", []string{"WSAGetLastError"}, 0b010, false},
		{"darwin", []string{"bogus"}, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.os+"/"+strings.Join(tc.names, ","), func(t *testing.T) {
			opt, err := CaptureCallStateOn(tc.os, tc.names...)
			if tc.err {
				if !errors.IsKind(err, errors.KindInvalidArgument) {
					t.Errorf("got %v, want invalid argument", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if opt.Mask() != tc.mask {
				t.Errorf("mask: got %b, want %b", opt.Mask(), tc.mask)
			}
		})
	}
}

func TestSupportedStates(t *testing.T) {
	if diff := cmp.Diff([]CapturableState{Errno}, SupportedStates("linux")); diff != "" {
		t.Errorf("linux (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]CapturableState{GetLastError, WSAGetLastError, Errno}, SupportedStates("windows")); diff != "" {
		t.Errorf("windows (-want +got):\n%s", diff)
	}
	if name, _ := Errno.Layout().Name(); name != "errno" {
		t.Errorf("errno layout name: got %q", name)
	}
}

func TestOptionRejectionIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	if _, err := ForDowncall(threeArgs(), FirstVariadicArg(9)); err == nil {
		t.Fatal("expected error")
	}

	entries := logs.FilterMessage("linker options rejected").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries", len(entries))
	}
	if got := entries[0].ContextMap()["kind"]; got != string(errors.KindOutOfBounds) {
		t.Errorf("kind field: got %v", got)
	}
}

func TestInterner(t *testing.T) {
	in := NewInterner()
	desc := threeArgs()

	var wg sync.WaitGroup
	results := make([]*Options, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := ForDowncall(desc, FirstVariadicArg(1), CaptureStates(Errno))
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = in.Intern(o)
		}()
	}
	wg.Wait()

	for _, o := range results[1:] {
		if o != results[0] {
			t.Fatal("equal option sets must intern to one instance")
		}
	}
	other, _ := ForDowncall(desc, FirstVariadicArg(2))
	if in.Intern(other) != other || in.Len() != 2 {
		t.Errorf("distinct sets stay distinct, len %d", in.Len())
	}
	if in.Intern(Empty()) != Empty() || in.Len() != 2 {
		t.Error("the empty set is never stored")
	}
}
