package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/foreign-abi/abi"
	"github.com/wippyai/foreign-abi/linker"
)

type interactiveModel struct {
	err     error
	plan    *linker.CallPlan
	linkers map[abi.Convention]*linker.Linker
	styles  styles
	convs   []abi.Convention
	input   textinput.Model
	capture textinput.Model
	conv    int
	upcall  bool
}

func newInteractiveModel(start abi.Convention, sig string) (*interactiveModel, error) {
	m := &interactiveModel{
		linkers: make(map[abi.Convention]*linker.Linker),
		styles:  newStyles(true),
		convs:   abi.Conventions(),
	}
	for i, c := range m.convs {
		l, err := linker.NewWithDefaults(c)
		if err != nil {
			return nil, err
		}
		m.linkers[c] = l
		if c == start {
			m.conv = i
		}
	}

	m.input = textinput.New()
	m.input.Prompt = "signature: "
	m.input.Placeholder = "int32(address, ..., int32, float64)"
	m.input.Width = 60
	m.input.SetValue(sig)
	m.input.Focus()

	m.capture = textinput.New()
	m.capture.Prompt = "capture:   "
	m.capture.Placeholder = "errno"
	m.capture.Width = 60

	m.replan()
	return m, nil
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "shift+tab":
			if m.input.Focused() {
				m.input.Blur()
				m.capture.Focus()
			} else {
				m.capture.Blur()
				m.input.Focus()
			}
			return m, nil
		case "ctrl+n":
			m.conv = (m.conv + 1) % len(m.convs)
			m.replan()
			return m, nil
		case "ctrl+p":
			m.conv = (m.conv + len(m.convs) - 1) % len(m.convs)
			m.replan()
			return m, nil
		case "ctrl+u":
			m.upcall = !m.upcall
			m.replan()
			return m, nil
		}
	}

	sig, capture := m.input.Value(), m.capture.Value()
	var cmds [2]tea.Cmd
	m.input, cmds[0] = m.input.Update(msg)
	m.capture, cmds[1] = m.capture.Update(msg)
	if m.input.Value() != sig || m.capture.Value() != capture {
		m.replan()
	}
	return m, tea.Batch(cmds[:]...)
}

func (m *interactiveModel) replan() {
	m.plan, m.err = nil, nil
	src := strings.TrimSpace(m.input.Value())
	if src == "" {
		return
	}
	l := m.linkers[m.convs[m.conv]]
	m.plan, m.err = planSignature(l, src, strings.TrimSpace(m.capture.Value()), m.upcall)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("ABI Planner"))
	direction := " downcall"
	if m.upcall {
		direction = " upcall"
	}
	b.WriteString(direction + " on " + m.convs[m.conv].String() + "\n\n")

	b.WriteString(m.input.View() + "\n")
	b.WriteString(m.capture.View() + "\n\n")

	switch {
	case m.err != nil:
		b.WriteString(m.styles.err.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	case m.plan != nil:
		b.WriteString(renderPlan(m.styles, m.plan))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("tab switch field • ctrl+n/ctrl+p convention • ctrl+u upcall • esc quit"))
	return b.String()
}

func runInteractive(conv abi.Convention, sig string) error {
	m, err := newInteractiveModel(conv, sig)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
