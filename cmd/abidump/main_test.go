package main

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/foreign-abi/abi"
	"github.com/wippyai/foreign-abi/layout"
	"github.com/wippyai/foreign-abi/linker"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		src      string
		want     string
		variadic int
	}{
		{"int32(address, ..., int32, float64)", "(a8i4d8)i4", 1},
		{"void()", "()v", -1},
		{"void(...)", "()v", 0},
		{"int64(..., int32)", "(i4)j8", 0},
		{"{int32 int64}(ptr)", "(a8)[i4x4j8]", -1},
		{"void({int8, int16})", "([bx1s2])v", -1},
	}

	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			sig, err := parseSignature(tc.src)
			if err != nil {
				t.Fatal(err)
			}
			if got := sig.desc.String(); got != tc.want {
				t.Errorf("descriptor: got %s, want %s", got, tc.want)
			}
			if sig.firstVariadic != tc.variadic {
				t.Errorf("first variadic: got %d, want %d", sig.firstVariadic, tc.variadic)
			}
		})
	}
}

func TestParseSignatureErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"int32",
		"int32(address",
		"int32(address int32)",
		"int32(..., ...)",
		"uint128()",
		"void({int32)",
		"void() extra",
	} {
		if _, err := parseSignature(src); err == nil {
			t.Errorf("parseSignature(%q): expected error", src)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("int32(a,...,{b c})")
	want := []string{"int32", "(", "a", ",", "...", ",", "{", "b", "c", "}", ")"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens (-want +got):\n%s", diff)
	}
}

func TestPlanSignature(t *testing.T) {
	l, err := linker.NewWithDefaults(abi.LinuxAArch64)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := planSignature(l, "int32(address, ..., int32)", "errno", false)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Options.IsVarargsIndex(1) || plan.CapturedStateMask != linker.Errno.Mask() {
		t.Errorf("options: %s", plan.Options)
	}

	if _, err := planSignature(l, "void()", "GetLastError", false); err == nil {
		t.Error("GetLastError is not capturable on linux")
	}
	if _, err := planSignature(l, "void(...)", "", true); err == nil {
		t.Error("upcalls reject variadic options")
	}
}

func TestRenderPlain(t *testing.T) {
	st := newStyles(false)
	l, err := linker.NewWithDefaults(abi.Win64)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := l.Downcall(linker.OfVoid(layout.Address, layout.Float64), linker.FirstVariadicArg(1))
	if err != nil {
		t.Fatal(err)
	}

	out := renderPlan(st, plan)
	for _, want := range []string{"windows-x86_64", "rcx", "xmm1 + rdx", "arg1...", "stack size", "32"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}

	desc := renderDescriptor(st, abi.SysV)
	if !strings.Contains(desc, "rdi rsi rdx rcx r8 r9") || !strings.Contains(desc, "target_address") {
		t.Errorf("descriptor output:\n%s", desc)
	}
}

func TestWriteHex(t *testing.T) {
	data, err := abi.SysV.Descriptor().MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	writeHex(&buf, data)
	if !strings.Contains(buf.String(), "|ABID") {
		t.Errorf("hex dump should show the magic:\n%s", buf.String())
	}
}

const testManifest = `
convention = "sysv-x86_64"

[[call]]
name = "printf"
signature = "int32(address, ..., int32, float64)"
capture = ["errno"]

[[call]]
signature = "void(address)"
convention = "macos-aarch64"
upcall = true
`

func TestManifestPlan(t *testing.T) {
	m, err := decodeManifest(testManifest)
	if err != nil {
		t.Fatal(err)
	}
	planned, err := m.plan(abi.LinuxRISCV64)
	if err != nil {
		t.Fatal(err)
	}
	if len(planned) != 2 {
		t.Fatalf("got %d calls, want 2", len(planned))
	}

	got := reports(planned)
	if got[0].Convention != "sysv-x86_64" || got[1].Convention != "macos-aarch64" {
		t.Errorf("conventions: %s, %s", got[0].Convention, got[1].Convention)
	}
	if got[1].Name != "call1" || got[1].Direction != "upcall" || got[1].Target != "" {
		t.Errorf("second call: %+v", got[1])
	}

	var storages []string
	for _, a := range got[0].Args {
		storages = append(storages, a.Storage)
	}
	if diff := cmp.Diff([]string{"rdi", "rsi", "xmm0"}, storages); diff != "" {
		t.Errorf("printf storages (-want +got):\n%s", diff)
	}
	if got[0].Args[0].Variadic || !got[0].Args[1].Variadic {
		t.Errorf("variadic flags: %+v", got[0].Args)
	}
	if got[0].VectorCount != "1 in rax" || got[0].CapturedState == "" {
		t.Errorf("printf extras: %+v", got[0])
	}

	var buf bytes.Buffer
	if err := writeYAML(&buf, got); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"name: printf", "storage: rdi", "variadic: true", "direction: upcall"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("yaml missing %q:\n%s", want, buf.String())
		}
	}
}

func TestManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "[[call]]\nsignature = \"void()\"\nretries = 3\n"},
		{"bad toml", "[[call]\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeManifest(tc.src); err == nil {
				t.Error("expected error")
			}
		})
	}

	for _, src := range []string{
		"[[call]]\nsignature = \"void()\"\nconvention = \"vax\"\n",
		"[[call]]\nsignature = \"void(\"\n",
	} {
		m, err := decodeManifest(src)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.plan(abi.SysV); err == nil {
			t.Errorf("plan(%q): expected error", src)
		}
	}
}

func TestInteractiveReplansOnChange(t *testing.T) {
	m, err := newInteractiveModel(abi.SysV, "int32(address)")
	if err != nil {
		t.Fatal(err)
	}
	plan := m.plan
	if plan == nil || m.err != nil {
		t.Fatalf("initial plan: %v", m.err)
	}

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if m.plan != plan {
		t.Error("messages that change nothing must keep the plan")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(")")})
	if m.err == nil || m.plan != nil {
		t.Error("editing the signature must replan")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if m.convs[m.conv] != abi.Win64 {
		t.Errorf("ctrl+n: got %s", m.convs[m.conv])
	}
}
