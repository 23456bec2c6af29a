package stages

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/parser/osmxml"
	"github.com/omniscale/osmpipe/pipeline"
	"github.com/omniscale/osmpipe/stats"
)

const bboxOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <bounds minlat="0" minlon="0" maxlat="10" maxlon="10"/>
  <node id="1" lat="5" lon="5" version="3" user="foo &amp; bar">
    <tag k="name" v="&lt;center&gt;"/>
  </node>
  <node id="2" lat="10" lon="10"/>
  <node id="3" lat="20" lon="20"/>
  <way id="10">
    <nd ref="3"/>
    <nd ref="2"/>
    <tag k="highway" v="track"/>
    <tag k="access" v="no"/>
  </way>
  <way id="11">
    <nd ref="3"/>
  </way>
  <relation id="20">
    <member type="way" ref="10" role="outer"/>
    <member type="node" ref="1" role=""/>
    <tag k="type" v="multipolygon"/>
  </relation>
  <relation id="21">
    <member type="node" ref="3" role="label"/>
  </relation>
</osm>
`

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "test.osm")
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func buildPipeline(t *testing.T, specs ...pipeline.StageSpec) (*pipeline.Pipeline, []pipeline.Stage) {
	t.Helper()
	stages, err := pipeline.Build(specs)
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.New(stages...)
	if err != nil {
		t.Fatal(err)
	}
	return p, stages
}

func TestBBoxPipeline(t *testing.T) {
	filename := writeTestFile(t, bboxOSM)
	p, stages := buildPipeline(t,
		pipeline.StageSpec{Name: "read-xml", Tokens: []string{filename}},
		pipeline.StageSpec{Name: "bbox", Tokens: []string{"10", "0", "0", "10"}},
		pipeline.StageSpec{Name: "write-null"},
	)
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := stats.ElementCount{Nodes: 2, Ways: 1, Relations: 1}
	if got := stages[1].Transform.(*BBox).Passed(); got != want {
		t.Error("unexpected passed count", got)
	}
	if got := p.Counters().Count(1); got != want {
		t.Error("unexpected bbox stage count", got)
	}
	if got := p.Counters().Count(0); got != (stats.ElementCount{Nodes: 3, Ways: 2, Relations: 2}) {
		t.Error("unexpected read-xml stage count", got)
	}
}

func readXML(t *testing.T, filename string) []*element.Element {
	t.Helper()
	p, err := osmxml.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	elems, err := pipeline.Collect(p)
	if err != nil {
		t.Fatal(err)
	}
	return elems
}

func TestXMLRoundTrip(t *testing.T) {
	in := writeTestFile(t, bboxOSM)
	for _, name := range []string{"out.osm", "out.osm.bz2", "out.osm.gz", "out.osm.zst"} {
		out := filepath.Join(t.TempDir(), name)
		p, _ := buildPipeline(t,
			pipeline.StageSpec{Name: "read-xml", Tokens: []string{in}},
			pipeline.StageSpec{Name: "write-xml", Tokens: []string{out}},
		)
		if err := p.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(readXML(t, in), readXML(t, out)); diff != "" {
			t.Errorf("%s: round trip changed elements (-in +out):\n%s", name, diff)
		}
	}
}

func TestWriteXMLRemovesIncompleteFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.osm")
	sent := false
	src := pipeline.SourceFunc(func() (pipeline.Stream, error) {
		return pipeline.StreamFunc(func() (*element.Element, error) {
			if !sent {
				sent = true
				return element.NewPoint("1", "5", "5"), nil
			}
			return nil, errors.New("truncated input")
		}), nil
	})
	p, err := pipeline.New(pipeline.NewSource("src", src), pipeline.NewSink("write-xml", WriteXML(out)))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error from source")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("expected incomplete output to be removed, got", err)
	}
}

func TestReadXMLMissingFile(t *testing.T) {
	p, _ := buildPipeline(t,
		pipeline.StageSpec{Name: "read-xml", Tokens: []string{filepath.Join(t.TempDir(), "missing.osm")}},
		pipeline.StageSpec{Name: "write-null"},
	)
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFileStageRegistration(t *testing.T) {
	for _, name := range []string{"read-xml", "read-pbf", "read-osc", "write-xml"} {
		if _, err := pipeline.Build([]pipeline.StageSpec{{Name: name}}); !pipeline.IsConfigError(err) {
			t.Errorf("%s without filename: expected config error, got %v", name, err)
		}
		if _, err := pipeline.Build([]pipeline.StageSpec{{Name: name, Tokens: []string{"a", "b"}}}); !pipeline.IsConfigError(err) {
			t.Errorf("%s with two filenames: expected config error, got %v", name, err)
		}
		if _, err := pipeline.Build([]pipeline.StageSpec{{Name: name, Tokens: []string{"filename=a.osm"}}}); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}
