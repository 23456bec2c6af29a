package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omniscale/osmpipe"
	"github.com/omniscale/osmpipe/log"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Main(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "version")
	if code != exitOK || strings.TrimSpace(out) != osmpipe.Version {
		t.Error("unexpected version output", code, out)
	}
}

func TestUsage(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}, {"-quiet"}} {
		code, out, _ := run(t, args...)
		if code != exitOK {
			t.Errorf("%v: exit code %d", args, code)
		}
		for _, want := range []string{"Usage: osmpipe", "--bbox top left bottom right", "--write-postgres", "-httpprofile"} {
			if !strings.Contains(out, want) {
				t.Errorf("%v: %q missing in usage", args, want)
			}
		}
	}
}

func TestConfigErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--read-xml", "in.osm", "--unknown-stage"},
		{"--read-xml", "in.osm"},
		{"--write-null"},
		{"--read-xml", "in.osm", "--bbox", "0", "0", "10", "10", "--write-null"},
		{"--read-xml", "in.osm", "--limit", "num=1", "2", "--write-null"},
		{"-nosuchflag", "--read-xml", "in.osm", "--write-null"},
	} {
		code, _, stderr := run(t, args...)
		if code != exitConfig {
			t.Errorf("%v: exit code %d, want %d (%s)", args, code, exitConfig, stderr)
		}
	}
}

func TestRun(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := log.SetOutput(buf)
	defer log.SetOutput(prev)
	defer log.SetMinLevel(log.LProgress)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.osm")
	out := filepath.Join(dir, "out.osm")
	doc := `<osm version="0.6"><node id="1" lat="1" lon="1"/><node id="2" lat="50" lon="50"/></osm>`
	if err := os.WriteFile(in, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := run(t, "-quiet", "--read-xml", in, "--bbox", "10", "0", "0", "10", "--write-xml", out)
	if code != exitOK {
		t.Fatal("exit code", code, stderr)
	}
	written, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(written), `<node id="1"`) || strings.Contains(string(written), `<node id="2"`) {
		t.Error("unexpected output", string(written))
	}
	if strings.Contains(buf.String(), "[info]") {
		t.Error("info logged with -quiet", buf.String())
	}

	code, _, _ = run(t, "--read-xml", filepath.Join(dir, "missing.osm"), "--write-null")
	if code != exitError {
		t.Error("expected error exit code for missing input, got", code)
	}
}
