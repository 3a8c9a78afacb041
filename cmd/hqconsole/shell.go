package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"hqconsole/pkg/confirm"
	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/transport"
)

var shellFlags dashboardFlags

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive console shell",
	Long: `Start a line-oriented console. The dashboard stays mounted while the shell
runs; type help for the command list.

Examples:
  hqconsole shell --node hub-1 --agent agent-1`,
	RunE: runShell,
}

func init() {
	shellFlags.register(shellCmd)
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var (
		log     *logger.Logger
		loop    *console.Loop
		host    *console.Host
		session *transport.WebSocketSession
		policy  *confirm.Policy
	)
	app := fx.New(append(consoleOptions(true),
		fx.Populate(&log, &loop, &host, &session, &policy))...)

	return runApp(ctx, app, func(ctx context.Context) error {
		op := newOperator(log, loop, host, session)
		if err := op.Mount(ctx, shellFlags.props()); err != nil {
			return err
		}

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "hq> ",
			HistoryFile:     filepath.Join(os.TempDir(), ".hqconsole_history"),
			HistoryLimit:    200,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("starting readline: %w", err)
		}
		defer rl.Close()

		policy.SetPrompt(readlinePrompt(rl))
		fmt.Println("hqconsole shell (type help, Ctrl+D to exit)")
		return shellLoop(ctx, rl, op)
	})
}

func shellLoop(ctx context.Context, rl *readline.Instance, op *operator) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		out, err := op.Exec(ctx, input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}

// readlinePrompt confirms through the shell's own line editor. It runs while the
// shell goroutine waits for the command, so the two never read at once.
func readlinePrompt(rl *readline.Instance) confirm.PromptFunc {
	return func(env protocol.Envelope) (bool, error) {
		prompt := fmt.Sprintf("send %s to %s/%s? [y/N] ", env.Command, env.Address, env.Route)
		rl.SetPrompt(prompt)
		defer rl.SetPrompt("hq> ")

		answer, err := rl.Readline()
		if err != nil {
			return false, nil
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	}
}
