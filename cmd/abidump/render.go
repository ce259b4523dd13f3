package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/foreign-abi/abi"
	"github.com/wippyai/foreign-abi/linker"
)

type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	storage  lipgloss.Style
	layout   lipgloss.Style
	variadic lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		label:    lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		storage:  lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		layout:   lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		variadic: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD580")),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

func (s styles) row(label, value string) string {
	return s.label.Render(fmt.Sprintf("%-16s", label)) + value + "\n"
}

func (s styles) storages(regs []abi.VMStorage) string {
	if len(regs) == 0 {
		return s.label.Render("-")
	}
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.String()
	}
	return s.storage.Render(strings.Join(names, " "))
}

var tableClasses = []abi.StorageType{abi.StorageInteger, abi.StorageVector, abi.StorageX87}

func renderDescriptor(s styles, c abi.Convention) string {
	d := c.Descriptor()
	var b strings.Builder
	b.WriteString(s.title.Render(c.String()))
	b.WriteString(" " + d.Arch.Name() + " (" + c.OS() + ")\n\n")

	for _, table := range []struct {
		name string
		get  func(abi.StorageType) []abi.VMStorage
	}{
		{"input", d.Input},
		{"output", d.Output},
		{"volatile", d.Volatile},
	} {
		for _, class := range tableClasses {
			if regs := table.get(class); len(regs) > 0 {
				b.WriteString(s.row(table.name+" "+class.String(), s.storages(regs)))
			}
		}
	}
	b.WriteString(s.row("stack alignment", strconv.Itoa(int(d.StackAlignment))))
	b.WriteString(s.row("shadow space", strconv.Itoa(int(d.ShadowSpace))))
	b.WriteString(s.row("scratch", s.storages([]abi.VMStorage{d.Scratch1, d.Scratch2})))
	b.WriteString(s.row("target", s.storage.Render(d.TargetAddrStorage().String())))
	b.WriteString(s.row("return buffer", s.storage.Render(d.RetBufAddrStorage().String())))
	b.WriteString(s.row("captured state", s.storage.Render(d.CapturedStateStorage().String())))
	return b.String()
}

func renderPlan(s styles, p *linker.CallPlan) string {
	var b strings.Builder
	b.WriteString(s.title.Render(p.Convention.String()))
	b.WriteString(" " + s.layout.Render(p.Descriptor.String()) + "\n\n")

	for i, arg := range p.ArgBindings {
		name := "arg" + strconv.Itoa(i)
		if p.Options.IsVarargsIndex(i) {
			name = s.variadic.Render(name + "...")
		}
		value := s.storage.Render(arg.Storage.String())
		if !arg.Shadow.IsZero() {
			value += " + " + s.storage.Render(arg.Shadow.String())
		}
		b.WriteString(s.row(name, value+"  "+s.layout.Render(arg.Layout.String())))
	}
	switch {
	case !p.HasReturn:
		b.WriteString(s.row("return", s.label.Render("void")))
	case p.ReturnsInMemory:
		b.WriteString(s.row("return", "in memory via "+s.storage.Render(p.ReturnBinding.Storage.String())))
	default:
		value := s.storage.Render(p.ReturnBinding.Storage.String())
		if !p.ReturnBinding.Upper.IsZero() {
			value += " : " + s.storage.Render(p.ReturnBinding.Upper.String())
		}
		b.WriteString(s.row("return", value))
	}
	b.WriteString(s.row("stack size", strconv.FormatInt(p.StackSize, 10)))
	if !p.TargetBinding.IsZero() {
		b.WriteString(s.row("target", s.storage.Render(p.TargetBinding.String())))
	}
	if !p.VectorCountBinding.IsZero() {
		b.WriteString(s.row("vector count", fmt.Sprintf("%d in %s", p.VectorCount, s.storage.Render(p.VectorCountBinding.String()))))
	}
	if l, ok := p.Options.CaptureStateLayout(); ok {
		b.WriteString(s.row("captured state", s.storage.Render(p.CapturedStateBinding.String())+"  "+s.layout.Render(l.String())))
	}
	b.WriteString(s.row("options", p.Options.String()))
	return b.String()
}

func renderWasm(s styles, params, results []api.ValueType) string {
	names := func(ts []api.ValueType) string {
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = api.ValueTypeName(t)
		}
		return "(" + strings.Join(out, " ") + ")"
	}
	return s.row("wasm32", s.layout.Render(names(params)+" -> "+names(results)))
}

func writeHex(w io.Writer, data []byte) {
	dumper := hex.Dumper(w)
	defer dumper.Close()
	_, _ = dumper.Write(data)
}
