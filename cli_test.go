package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"

	"oamdma/emu"
	"oamdma/hw"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		bits    int
		want    uint64
		wantErr bool
	}{
		{"02", 8, 0x02, false},
		{"$C0", 8, 0xC0, false},
		{"0xff", 8, 0xFF, false},
		{"0X4014", 16, 0x4014, false},
		{"100", 8, 0, true},
		{"zz", 16, 0, true},
		{"", 8, 0, true},
	}
	for _, tt := range tests {
		got, err := parseHex(tt.in, tt.bits)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseHex(%q) = %X, want %X", tt.in, got, tt.want)
		}
	}
}

func TestRunFlags(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, vars)
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := parser.Parse([]string{"run", "--page", "$C0", "--load-addr", "0xC080", "--trace-format", "json"})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Command() != "run" {
		t.Errorf("command = %q, want run", ctx.Command())
	}
	if cli.Run.Page != 0xC0 {
		t.Errorf("page = %02X, want C0", cli.Run.Page)
	}
	if !cli.Run.LoadAddr.set || cli.Run.LoadAddr.addr != 0xC080 {
		t.Errorf("load-addr = %+v, want C080", cli.Run.LoadAddr)
	}

	if _, err := parser.Parse([]string{"run", "--page", "1FF"}); err == nil {
		t.Errorf("page 1FF should be rejected")
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, hw.TransferResult{Page: 0x02, Start: 1, ActiveCycles: 768, CooldownCycles: 1, Reads: 256, Writes: 256})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	fields := strings.Fields(lines[1])
	want := []string{"02", "1", "768", "0", "1", "256", "256"}
	if strings.Join(fields, " ") != strings.Join(want, " ") {
		t.Errorf("row = %q, want %q", fields, want)
	}
}

func TestSessionsCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cycles.db")
	if err := os.WriteFile(db, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var cli CLI
	parser, err := kong.New(&cli, vars)
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := parser.Parse([]string{"sessions", db})
	if err != nil {
		t.Fatal(err)
	}
	if cmd, _, _ := strings.Cut(ctx.Command(), " "); cmd != "sessions" {
		t.Errorf("command = %q, want sessions", ctx.Command())
	}
	if cli.Sessions.DB != db {
		t.Errorf("db = %q, want %q", cli.Sessions.DB, db)
	}

	var buf bytes.Buffer
	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local)
	printSessions(&buf, []emu.SessionInfo{{ID: "cp0ab", Label: "page 02", Created: created, Cycles: 771}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	want := "cp0ab page 02 771 2024-05-01 12:30:00"
	if got := strings.Join(strings.Fields(lines[1]), " "); got != want {
		t.Errorf("row = %q, want %q", got, want)
	}
}
