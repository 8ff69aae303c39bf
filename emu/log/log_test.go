package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/Sirupsen/logrus.v0"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	logger := logrus.StandardLogger()
	oldOut, oldFmt := logger.Out, logger.Formatter
	logrus.SetOutput(&buf)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	t.Cleanup(func() {
		logrus.SetOutput(oldOut)
		logrus.SetFormatter(oldFmt)
		DisableDebugModules(ModuleMaskAll)
		Enable()
	})
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		m := map[string]any{}
		if err := dec.Decode(&m); err != nil {
			t.Fatal(err)
		}
		delete(m, "time")
		entries = append(entries, m)
	}
	return entries
}

type cycleCtx struct{ cycle int64 }

func (c *cycleCtx) AddLogContext(z *EntryZ) { z.Int64("cycle", c.cycle) }

func TestEntryZ(t *testing.T) {
	buf := captureLogs(t)
	EnableDebugModules(ModDMA.Mask())

	remove := AddContext(&cycleCtx{cycle: 42})
	ModDMA.DebugZ("start").
		Hex8("page", 0x02).
		Hex16("addr", 0x4014).
		Bool("active", true).
		Error("err", errors.New("boom")).
		End()
	remove()
	ModDMA.InfoZ("end").Int("bytes", 256).End()

	want := []map[string]any{
		{
			"level":  "debug",
			"msg":    "start",
			"_mod":   "dma",
			"page":   "02",
			"addr":   "4014",
			"active": "true",
			"err":    "boom",
			"cycle":  "42",
		},
		{
			"level": "info",
			"msg":   "end",
			"_mod":  "dma",
			"bytes": "256",
		},
	}
	if diff := cmp.Diff(want, decodeLines(t, buf)); diff != "" {
		t.Errorf("log entries mismatch (-want +got):\n%s", diff)
	}
}

func TestDisabledModule(t *testing.T) {
	buf := captureLogs(t)

	if z := ModOAM.DebugZ("nope"); z != nil {
		t.Fatalf("DebugZ on disabled module returned non-nil entry")
	}
	// Chaining on a nil entry must be safe.
	ModOAM.DebugZ("nope").Hex8("x", 1).String("y", "z").End()

	if buf.Len() != 0 {
		t.Errorf("got output for disabled module: %s", buf.String())
	}

	// Warnings are always on...
	ModOAM.WarnZ("warn").End()
	if buf.Len() == 0 {
		t.Errorf("warning was not logged")
	}

	// ...unless everything is disabled.
	buf.Reset()
	Disable()
	ModOAM.WarnZ("warn").End()
	if buf.Len() != 0 {
		t.Errorf("got output after Disable: %s", buf.String())
	}
}

func TestModuleByName(t *testing.T) {
	for _, name := range ModuleNames() {
		mod, ok := ModuleByName(name)
		if !ok {
			t.Fatalf("ModuleByName(%q) not found", name)
		}
		if mod.String() != name {
			t.Errorf("ModuleByName(%q).String() = %q", name, mod.String())
		}
	}
	if _, ok := ModuleByName("<error>"); ok {
		t.Errorf("ModuleByName should not resolve the placeholder module")
	}
	if _, ok := ModuleByName("gpu"); ok {
		t.Errorf("ModuleByName(gpu) should fail")
	}
}
