package main

import (
	"bytes"
	"strings"
	"testing"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/command"
	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/stream"
	"hqconsole/pkg/transport"
)

func TestParseStreamKey(t *testing.T) {
	tests := []struct {
		arg     string
		want    protocol.Key
		wantErr bool
	}{
		{"hub-1/gates/list", protocol.NewKey("hub-1", "gates", "list"), false},
		{"10.0.0.1:9000/agents/list", protocol.NewKey("10.0.0.1:9000", "agents", "list"), false},
		{"a1//info", protocol.NewKey("a1", "", "info"), false},
		{"a1/info", protocol.Key{}, true},
		{"/gates/list", protocol.Key{}, true},
		{"a1/gates/", protocol.Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseStreamKey(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFormatSnapshot(t *testing.T) {
	snap := map[string]stream.Value{
		"b/r/t": stream.Loading,
		"a/r/t": stream.Loaded([]any{map[string]any{"id": "ds1"}}),
		"c/r/t": stream.Loaded(nil),
	}

	text, err := formatSnapshot("text", snap)
	if err != nil {
		t.Fatal(err)
	}
	if text != "a/r/t: [{\"id\":\"ds1\"}]\nb/r/t: loading...\nc/r/t: null" {
		t.Fatalf("unexpected text output %q", text)
	}

	y, err := formatSnapshot("yaml", snap)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(y, "- id: ds1") {
		t.Fatalf("expected payload in yaml output:\n%s", y)
	}
	if !strings.Contains(y, "b/r/t:\n    loaded: false") || !strings.Contains(y, "c/r/t:\n    loaded: true") {
		t.Fatalf("expected loaded flags in yaml output:\n%s", y)
	}

	j, err := formatSnapshot("json", snap)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(j, `"loaded": false`) || !strings.Contains(j, `"id": "ds1"`) {
		t.Fatalf("unexpected json output:\n%s", j)
	}

	if _, err := formatSnapshot("xml", snap); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestChangePrinterSkipsRepeats(t *testing.T) {
	var buf bytes.Buffer
	p := &changePrinter{w: &buf}

	p.Print("one")
	p.Print("one")
	p.Print("two")

	if got := buf.String(); got != "one\n---\ntwo\n---\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRawWatcherShowsReceivedNull(t *testing.T) {
	w, err := newRawWatcher([]string{"a1/r/t"})
	if err != nil {
		t.Fatal(err)
	}

	log := logger.NewNop()
	session := transport.NewMemorySession()
	registry := stream.NewRegistry(log, session)
	demux := stream.NewDemux(log, registry, nil)
	host := console.NewHost(log, registry, bus.NewLocalBus(log), command.NewChannel(log, session), nil)
	demux.OnChange(host.HandleChange)
	session.Listen(transport.Listeners{stream.NewReceiver(log, registry, demux), host})
	session.Connect()

	if _, err := host.Mount(w, nil); err != nil {
		t.Fatal(err)
	}
	if text, _ := formatSnapshot("text", w.Snapshot()); text != "a1/r/t: loading..." {
		t.Fatalf("expected loading before any push, got %q", text)
	}

	session.Push(protocol.PushFrame(protocol.NewKey("a1", "r", "t"), []byte(`null`)))
	text, err := formatSnapshot("text", w.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if text != "a1/r/t: null" {
		t.Fatalf("expected received null, got %q", text)
	}
}
