package stages

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/pipeline"
)

func ids(t *testing.T, in pipeline.Stream) []string {
	t.Helper()
	elems, err := pipeline.Collect(in)
	if err != nil {
		t.Fatal(err)
	}
	var result []string
	for _, e := range elems {
		result = append(result, e.String())
	}
	return result
}

func mixed() []*element.Element {
	return []*element.Element{
		element.NewPoint("1", "0", "0"),
		element.NewPoint("2", "0", "0"),
		element.NewWay("10", "1", "2"),
		element.NewRelation("20", element.Member{Type: "way", Ref: "10"}),
		element.NewPoint("3", "0", "0"),
	}
}

func TestKindFilters(t *testing.T) {
	for _, tc := range []struct {
		t    pipeline.Transform
		want []string
	}{
		{OnlyKind(element.Point), []string{"node/1", "node/2", "node/3"}},
		{OnlyKind(element.Way), []string{"way/10"}},
		{OnlyKind(element.Relation), []string{"relation/20"}},
		{RejectKind(element.Point), []string{"way/10", "relation/20"}},
		{RejectKind(element.Way), []string{"node/1", "node/2", "relation/20", "node/3"}},
		{RejectKind(element.Relation), []string{"node/1", "node/2", "way/10", "node/3"}},
	} {
		got := ids(t, tc.t.Apply(pipeline.FromSlice(mixed()...)))
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("unexpected elements (-want +got):\n%s", diff)
		}
	}
}

type countingStream struct {
	in    pipeline.Stream
	pulls int
}

func (c *countingStream) Next() (*element.Element, error) {
	c.pulls += 1
	return c.in.Next()
}

func TestLimit(t *testing.T) {
	for _, tc := range []struct {
		n         int
		want      int
		wantPulls int
	}{
		{0, 5, 6},
		{-1, 5, 6},
		{2, 2, 2},
		{5, 5, 5},
		{10, 5, 6},
	} {
		in := &countingStream{in: pipeline.FromSlice(mixed()...)}
		n, err := pipeline.Drain(Limit(tc.n).Apply(in))
		if err != nil {
			t.Fatal(err)
		}
		if n != tc.want {
			t.Errorf("limit %d: got %d elements, want %d", tc.n, n, tc.want)
		}
		if in.pulls != tc.wantPulls {
			t.Errorf("limit %d: input pulled %d times, want %d", tc.n, in.pulls, tc.wantPulls)
		}
	}
}

func TestDefaultTags(t *testing.T) {
	defaults := map[string]string{"source": "survey", "name": "default"}
	nd := element.NewPoint("1", "0", "0")
	nd.Tags["name"] = "Foo"
	way := element.NewWay("2")
	way.Tags = nil

	elems, err := pipeline.Collect(DefaultTags(defaults).Apply(pipeline.FromSlice(nd, way)))
	if err != nil {
		t.Fatal(err)
	}
	want := []element.Tags{
		{"name": "Foo", "source": "survey"},
		{"name": "default", "source": "survey"},
	}
	for i, e := range elems {
		if diff := cmp.Diff(want[i], e.Tags); diff != "" {
			t.Errorf("%s: unexpected tags (-want +got):\n%s", e, diff)
		}
	}

	// applying again changes nothing
	again, err := pipeline.Collect(DefaultTags(defaults).Apply(pipeline.FromSlice(elems...)))
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range again {
		if diff := cmp.Diff(want[i], e.Tags); diff != "" {
			t.Errorf("%s: tags changed on second pass (-want +got):\n%s", e, diff)
		}
	}
}

func TestFilterRegistration(t *testing.T) {
	for _, tc := range []struct {
		name   string
		tokens []string
		ok     bool
	}{
		{"only-nodes", nil, true},
		{"only-nodes", []string{"x"}, false},
		{"reject-relations", nil, true},
		{"limit", []string{"10"}, true},
		{"limit", []string{"num=10"}, true},
		{"limit", []string{"ten"}, false},
		{"limit", []string{"n=10"}, false},
		{"default-tags", []string{"source=survey", "note=a=b"}, true},
		{"default-tags", []string{"source"}, false},
		{"default-tags", []string{"source=survey", "note"}, false},
		{"write-null", nil, true},
		{"write-null", []string{"out.osm"}, false},
	} {
		_, err := pipeline.Build([]pipeline.StageSpec{{Name: tc.name, Tokens: tc.tokens}})
		if tc.ok && err != nil {
			t.Errorf("%s %v: %v", tc.name, tc.tokens, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%s %v: expected error", tc.name, tc.tokens)
			} else if !pipeline.IsConfigError(err) {
				t.Errorf("%s %v: expected config error, got %v", tc.name, tc.tokens, err)
			}
		}
	}
}
