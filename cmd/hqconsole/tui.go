package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"hqconsole/pkg/confirm"
	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/stream"
	"hqconsole/pkg/transport"
	"hqconsole/pkg/version"
	"hqconsole/pkg/views"
)

var tuiFlags dashboardFlags

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the terminal UI",
	Long: `Start a Bubble Tea based console. Tab switches sections; the input line takes
the same commands as the shell. Destructive commands are sent when repeated.`,
	RunE: runTUI,
}

func init() {
	tuiFlags.register(tuiCmd)
	rootCmd.AddCommand(tuiCmd)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const maxNotices = 5

type renderMsg struct {
	text string
}

type noticeMsg string

type execResultMsg struct {
	out string
	err error
}

type tuiModel struct {
	ctx     context.Context
	op      *operator
	confirm *twoPress
	input   textinput.Model
	view    string
	notices []string
	section int
	waiting bool
}

func newTUIModel(ctx context.Context, op *operator, prompt *twoPress) tuiModel {
	input := textinput.New()
	input.Placeholder = "help, node <address>, replay <gate>, ..."
	input.Focus()
	input.Prompt = "> "

	return tuiModel{
		ctx:     ctx,
		op:      op,
		confirm: prompt,
		input:   input,
		view:    "connecting...",
	}
}

func (m tuiModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m tuiModel) exec(line string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.op.Exec(m.ctx, line)
		return execResultMsg{out: out, err: err}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.section = (m.section + 1) % len(views.Sections)
			return m, m.exec("section " + views.Sections[m.section])
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			if line == "exit" || line == "quit" {
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.waiting = true
			return m, m.exec(line)
		}

	case renderMsg:
		m.view = msg.text
		return m, nil

	case noticeMsg:
		m = m.notice(noticeStyle.Render(string(msg)))
		return m, nil

	case execResultMsg:
		m.waiting = false
		switch {
		case errors.Is(msg.err, console.ErrNotConfirmed):
			// The two-press prompt already explained what to do.
		case msg.err != nil:
			m.confirm.Disarm()
			m = m.notice(errorStyle.Render("error: " + msg.err.Error()))
		case msg.out != "":
			m = m.notice(msg.out)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m tuiModel) notice(text string) tuiModel {
	m.notices = append(m.notices, text)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
	return m
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("hqconsole %s", version.Version)))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 80))
	b.WriteString("\n")
	b.WriteString(m.view)
	b.WriteString("\n\n")
	for _, n := range m.notices {
		b.WriteString(n)
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var (
		log     *logger.Logger
		loop    *console.Loop
		host    *console.Host
		session *transport.WebSocketSession
		policy  *confirm.Policy
	)
	app := fx.New(consoleOptions(true, fx.Populate(&log, &loop, &host, &session, &policy))...)

	return runApp(ctx, app, func(ctx context.Context) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		op := newOperator(log, loop, host, session)
		prompt := &twoPress{}
		program := tea.NewProgram(newTUIModel(ctx, op, prompt), tea.WithAltScreen(), tea.WithContext(ctx))

		prompt.notify = func(msg string) { go program.Send(noticeMsg(msg)) }
		policy.SetPrompt(prompt.Prompt)

		// Renders are coalesced: the loop only marks the view dirty.
		dirty := make(chan struct{}, 1)
		host.OnRender(func(stream.ComponentID, console.Component) {
			select {
			case dirty <- struct{}{}:
			default:
			}
		})
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-dirty:
				}
				out, err := op.Render(ctx)
				if err != nil {
					return
				}
				program.Send(renderMsg{text: out})
			}
		}()

		if err := op.Mount(ctx, tuiFlags.props()); err != nil {
			return err
		}

		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("tui terminated: %w", err)
		}
		return nil
	})
}
