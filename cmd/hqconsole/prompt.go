package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"hqconsole/pkg/protocol"
)

// terminalPrompt asks for a single y/n key press on the controlling terminal.
func terminalPrompt(env protocol.Envelope) (bool, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return false, fmt.Errorf("cannot confirm %s: stdin is not a terminal (use --yes)", env.Command)
	}

	fmt.Fprintf(os.Stderr, "Send %s to %s/%s? [y/N] ", env.Command, env.Address, env.Route)

	state, err := term.MakeRaw(fd)
	if err != nil {
		return false, fmt.Errorf("switching terminal to raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	buf := make([]byte, 1)
	if _, err := io.ReadFull(os.Stdin, buf); err != nil {
		return false, err
	}
	fmt.Fprint(os.Stderr, "\r\n")
	return buf[0] == 'y' || buf[0] == 'Y', nil
}

// twoPress confirms a command when the same command is requested twice in a row.
// The first request is refused and reported through notify. It never blocks, so it
// is safe to use from a UI event loop.
type twoPress struct {
	mu     sync.Mutex
	armed  *protocol.Envelope
	notify func(msg string)
}

func (p *twoPress) Prompt(env protocol.Envelope) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.armed != nil && sameTarget(*p.armed, env) {
		p.armed = nil
		return true, nil
	}
	p.armed = &env
	if p.notify != nil {
		p.notify(fmt.Sprintf("%s %s/%s needs confirmation: repeat it to send", env.Command, env.Address, env.Route))
	}
	return false, nil
}

// Disarm forgets a pending confirmation.
func (p *twoPress) Disarm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = nil
}

func sameTarget(a, b protocol.Envelope) bool {
	return a.Address == b.Address && a.Route == b.Route && a.Command == b.Command
}
