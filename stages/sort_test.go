package stages

import (
	"io"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/pipeline"
)

func TestSortIDs(t *testing.T) {
	for _, tc := range []struct {
		ids  []string
		want []string
	}{
		{[]string{"10", "9", "-1", "100"}, []string{"-1", "9", "10", "100"}},
		{[]string{"1", "01", "0"}, []string{"0", "01", "1"}},
		{[]string{"10", "9", "a"}, []string{"10", "9", "a"}},
		{[]string{"b", "a", "B"}, []string{"B", "a", "b"}},
		{nil, nil},
	} {
		SortIDs(tc.ids)
		if diff := cmp.Diff(tc.want, tc.ids); diff != "" {
			t.Errorf("unexpected order (-want +got):\n%s", diff)
		}
	}
}

func unsorted() []*element.Element {
	dup := element.NewPoint("2", "0", "0")
	dup.Tags["version"] = "old"
	last := element.NewPoint("2", "1", "1")
	last.Tags["version"] = "new"
	return []*element.Element{
		element.NewRelation("7", element.Member{Type: "node", Ref: "2"}),
		element.NewWay("10", "2", "1"),
		dup,
		element.NewPoint("10", "0", "0"),
		element.NewWay("9", "1"),
		element.NewPoint("1", "0", "0"),
		last,
		element.NewRelation("x"),
	}
}

func collectClose(t *testing.T, in pipeline.Stream) []*element.Element {
	t.Helper()
	elems, err := pipeline.Collect(in)
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := in.(io.Closer); ok {
		if err := c.Close(); err != nil {
			t.Fatal(err)
		}
	}
	return elems
}

func testSort(t *testing.T, s *Sort) {
	sorted := collectClose(t, s.Apply(pipeline.FromSlice(unsorted()...)))
	var got []string
	for _, e := range sorted {
		got = append(got, e.String())
	}
	want := []string{"node/1", "node/2", "node/10", "way/9", "way/10", "relation/7", "relation/x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	if sorted[1].Tags["version"] != "new" || sorted[1].Attr("lat") != "1" {
		t.Error("duplicate id did not keep last element", sorted[1])
	}

	// sorting again is a no-op
	again := collectClose(t, s.Apply(pipeline.FromSlice(sorted...)))
	if diff := cmp.Diff(sorted, again); diff != "" {
		t.Errorf("sort not idempotent (-first +second):\n%s", diff)
	}
}

func TestSort(t *testing.T) {
	testSort(t, &Sort{})
}

func TestSortCacheDir(t *testing.T) {
	dir := t.TempDir()
	testSort(t, &Sort{CacheDir: dir})

	s := (&Sort{CacheDir: dir}).Apply(pipeline.FromSlice(element.NewPoint("1", "0", "0")))
	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatal("expected one cache dir, got", len(entries))
	}
	if err := s.(io.Closer).Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Next(); err != io.EOF {
		t.Error("expected io.EOF after close, got", err)
	}
	entries, err = os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Error("cache dir not removed", entries)
	}
}

func TestSortEmpty(t *testing.T) {
	n, err := pipeline.Drain((&Sort{}).Apply(pipeline.FromSlice()))
	if err != nil || n != 0 {
		t.Error("unexpected result for empty input", n, err)
	}
}

func TestSortInvalidElement(t *testing.T) {
	in := pipeline.FromSlice(element.NewPoint("1", "0", "0"), &element.Element{Kind: element.Kind(9)})
	s := (&Sort{}).Apply(in)
	_, err := s.Next()
	if errors.Cause(err) != element.ErrInvalidElement {
		t.Fatal("expected ErrInvalidElement, got", err)
	}
	if _, err2 := s.Next(); err2 != err {
		t.Error("error not sticky", err2)
	}
}
