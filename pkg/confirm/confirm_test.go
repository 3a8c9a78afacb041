package confirm

import (
	"fmt"
	"testing"

	"hqconsole/pkg/protocol"
)

func env(command string) protocol.Envelope {
	return protocol.Envelope{Address: "node-1", Route: "g1", Command: command}
}

func TestNonDestructiveAlwaysApproved(t *testing.T) {
	for _, mode := range []Mode{ModePrompt, ModeAuto, ModeDeny} {
		p := NewPolicy(Config{Mode: mode})
		decision, err := p.Check(env("start"))
		if err != nil {
			t.Fatal(err)
		}
		if decision != Approved {
			t.Errorf("%s: expected Approved, got %s", mode, decision)
		}
	}
}

func TestAutoMode(t *testing.T) {
	p := NewPolicy(Config{Mode: ModeAuto})

	decision, err := p.Check(env("kill"))
	if err != nil {
		t.Fatal(err)
	}
	if decision != Approved {
		t.Fatalf("expected Approved, got %s", decision)
	}
}

func TestDenyMode(t *testing.T) {
	p := NewPolicy(Config{Mode: ModeDeny})

	decision, err := p.Check(env("replay"))
	if err != nil {
		t.Fatal(err)
	}
	if decision != Denied {
		t.Fatalf("expected Denied, got %s", decision)
	}
}

func TestPromptMode(t *testing.T) {
	p := NewPolicy(Config{Mode: ModePrompt})

	var asked protocol.Envelope
	p.SetPrompt(func(e protocol.Envelope) (bool, error) {
		asked = e
		return true, nil
	})

	decision, err := p.Check(env("replay"))
	if err != nil {
		t.Fatal(err)
	}
	if decision != Approved {
		t.Fatalf("expected Approved, got %s", decision)
	}
	if asked.Command != "replay" || asked.Route != "g1" {
		t.Fatalf("unexpected prompt envelope %+v", asked)
	}
}

func TestPromptModeRejected(t *testing.T) {
	p := NewPolicy(Config{Mode: ModePrompt})
	p.SetPrompt(func(protocol.Envelope) (bool, error) { return false, nil })

	decision, _ := p.Check(env("kill"))
	if decision != Denied {
		t.Fatalf("expected Denied, got %s", decision)
	}
}

func TestPromptModeWithoutPromptDenies(t *testing.T) {
	p := NewPolicy(Config{Mode: ModePrompt})

	decision, err := p.Check(env("kill"))
	if err != nil {
		t.Fatal(err)
	}
	if decision != Denied {
		t.Fatalf("expected Denied, got %s", decision)
	}
}

func TestPromptError(t *testing.T) {
	p := NewPolicy(Config{Mode: ModePrompt})
	p.SetPrompt(func(protocol.Envelope) (bool, error) {
		return false, fmt.Errorf("terminal closed")
	})

	decision, err := p.Check(env("kill"))
	if err == nil {
		t.Fatal("expected error")
	}
	if decision != Denied {
		t.Fatalf("expected Denied, got %s", decision)
	}
}

func TestCustomDestructiveList(t *testing.T) {
	p := NewPolicy(Config{Mode: ModeDeny, Destructive: []string{"stop"}})

	if !p.IsDestructive("stop") {
		t.Fatal("expected stop to be destructive")
	}
	if p.IsDestructive("kill") {
		t.Fatal("expected kill to be allowed by a custom list")
	}
}

func TestWildcardDestructive(t *testing.T) {
	p := NewPolicy(Config{Mode: ModeDeny, Destructive: []string{"*"}})

	decision, _ := p.Check(env("start"))
	if decision != Denied {
		t.Fatalf("expected Denied, got %s", decision)
	}
}
