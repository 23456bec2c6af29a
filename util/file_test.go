package util

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestCompressionForFilename(t *testing.T) {
	for _, tc := range []struct {
		name string
		c    Compression
	}{
		{"planet.osm", None},
		{"planet.osm.bz2", Bzip2},
		{"PLANET.OSM.BZ2", Bzip2},
		{"changes.osc.gz", Gzip},
		{"extract.osm.zst", Zstd},
		{"bz2.osm", None},
	} {
		if c := CompressionForFilename(tc.name); c != tc.c {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.c, c)
		}
	}
}

func TestCreateOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := "<osm>\n<node id=\"1\"/>\n</osm>\n"

	for _, name := range []string{"plain.osm", "c.osm.bz2", "c.osm.gz", "c.osm.zst"} {
		filename := filepath.Join(dir, name)
		w, err := CreateFile(filename)
		if err != nil {
			t.Fatal(name, err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatal(name, err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(name, err)
		}

		if CompressionForFilename(name) != None {
			raw, err := os.ReadFile(filename)
			if err != nil {
				t.Fatal(err)
			}
			if string(raw) == content {
				t.Errorf("%s not compressed", name)
			}
		}

		r, err := OpenFile(filename)
		if err != nil {
			t.Fatal(name, err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(name, err)
		}
		r.Close()
		if string(data) != content {
			t.Errorf("%s: unexpected content %q", name, data)
		}
	}
}
