package main

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/runtime"
	"github.com/wippyai/wasm-engine/wasm"
)

var (
	stdinIsTerminal  int32 = -1 // -1 = unchecked, 0 = no, 1 = yes
	stdoutIsTerminal int32 = -1
)

func isTerminal(fd int, cached *int32) bool {
	if v := atomic.LoadInt32(cached); v >= 0 {
		return v == 1
	}
	result := term.IsTerminal(fd)
	if result {
		atomic.StoreInt32(cached, 1)
	} else {
		atomic.StoreInt32(cached, 0)
	}
	return result
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// debugModel steps a Resumable one fuel unit at a time and renders its
// pc/stp, call-frame depth, next opcode, and operand stack.
type debugModel struct {
	err      error
	filename string
	args     []engine.Value

	rt    *runtime.Runtime
	mod   *runtime.Module
	inst  *runtime.Instance
	funcs []string

	selected int
	ref      *engine.ResumableRef
	view     engine.DebugView
	finished *engine.Finished
	state    debugState
}

type debugState int

const (
	stateSelectFunc debugState = iota
	stateStepping
	stateFinished
)

func newDebugModel(filename string, args []engine.Value) *debugModel {
	return &debugModel{filename: filename, args: args, state: stateSelectFunc}
}

type loadedMsg struct {
	err   error
	rt    *runtime.Runtime
	mod   *runtime.Module
	inst  *runtime.Instance
	funcs []string
}

func (m *debugModel) Init() tea.Cmd {
	return m.load
}

func (m *debugModel) load() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	rt := runtime.New(nil)
	mod, err := rt.LoadWASM(data)
	if err != nil {
		return loadedMsg{err: err}
	}

	inst, err := mod.Instantiate(nil, engine.NoFuel())
	if err != nil {
		return loadedMsg{err: err}
	}

	var names []string
	for _, e := range mod.Funcs() {
		names = append(names, e.Name)
	}

	return loadedMsg{rt: rt, mod: mod, inst: inst, funcs: names}
}

func (m *debugModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.startCall()
			case stateFinished:
				m.state = stateSelectFunc
				m.finished = nil
				m.err = nil
				m.ref = nil
			}

		case "s", " ":
			if m.state == stateStepping {
				m.step()
			}

		case "esc":
			m.state = stateSelectFunc
			m.ref = nil
			m.finished = nil
			m.err = nil
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt, m.mod, m.inst, m.funcs = msg.rt, msg.mod, msg.inst, msg.funcs
	}

	return m, nil
}

// startCall invokes the selected function with a single fuel unit, so
// the very first step already lands on a Suspended state to inspect.
func (m *debugModel) startCall() {
	name := m.funcs[m.selected]
	rs, err := m.inst.Call(name, engine.SomeFuel(1), m.args...)
	m.applyRunState(rs, err)
}

func (m *debugModel) step() {
	if m.ref == nil {
		return
	}
	if err := m.inst.AddFuel(m.ref, 1); err != nil {
		m.err = err
		m.state = stateFinished
		return
	}
	rs, err := m.inst.Resume(*m.ref)
	m.applyRunState(rs, err)
}

func (m *debugModel) applyRunState(rs engine.RunState, err error) {
	if err != nil {
		m.err = err
		m.state = stateFinished
		return
	}
	switch v := rs.(type) {
	case engine.Finished:
		fin := v
		m.finished = &fin
		m.ref = nil
		m.state = stateFinished
	case engine.Suspended:
		ref := v.Ref
		m.ref = &ref
		dv, derr := m.rt.Store().Inspect(ref)
		if derr != nil {
			m.err = derr
			m.state = stateFinished
			return
		}
		m.view = dv
		m.state = stateStepping
	}
}

func (m *debugModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("wasm-engine debugger"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter back • q quit"))
		return b.String()
	}

	switch m.state {
	case stateSelectFunc:
		if len(m.funcs) == 0 {
			b.WriteString("Loading module...\n")
			return b.String()
		}
		b.WriteString("Select a function to step through:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + f))
			} else {
				b.WriteString("  " + funcStyle.Render(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter start (one fuel unit per step) • q quit"))

	case stateStepping:
		b.WriteString(fmt.Sprintf("Stepping %s\n\n", funcStyle.Render(m.funcs[m.selected])))
		b.WriteString(fmt.Sprintf("pc=%d  stp=%d  call depth=%d\n", m.view.PC, m.view.STP, m.view.CallDepth))
		next := "(end of function)"
		if !m.view.AtEnd {
			next = wasm.OpcodeName(m.view.NextOpcode)
		}
		b.WriteString("next: ")
		b.WriteString(typeStyle.Render(next))
		b.WriteString("\n\n")
		b.WriteString("operand stack (top last):\n")
		b.WriteString(formatOperands(m.view.Operands))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("s/space step • esc restart • q quit"))

	case stateFinished:
		if m.finished != nil {
			b.WriteString(resultStyle.Render("Finished: " + formatValues(m.finished.Values)))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter back • q quit"))
	}

	return b.String()
}

func formatOperands(vals []engine.Value) string {
	if len(vals) == 0 {
		return "  (empty)"
	}
	start := 0
	if len(vals) > 8 {
		start = len(vals) - 8
	}
	var lines []string
	for _, v := range vals[start:] {
		lines = append(lines, "  "+formatValue(v))
	}
	if start > 0 {
		lines = append([]string{fmt.Sprintf("  ... %d more below", start)}, lines...)
	}
	return strings.Join(lines, "\n")
}

// runInteractive launches the stepping debugger's full-screen UI. It
// refuses to start outside a real terminal instead of letting
// bubbletea fail deep inside its raw-mode setup with an opaque error.
func runInteractive(filename string, _ uint64, args []engine.Value) error {
	if !isTerminal(int(os.Stdin.Fd()), &stdinIsTerminal) || !isTerminal(int(os.Stdout.Fd()), &stdoutIsTerminal) {
		return fmt.Errorf("interactive mode requires a terminal on stdin and stdout")
	}
	p := tea.NewProgram(newDebugModel(filename, args), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
