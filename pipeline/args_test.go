package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestParseArgs(t *testing.T) {
	for _, tc := range []struct {
		tokens     []string
		positional []string
		keywords   map[string]string
	}{
		{nil, nil, map[string]string{}},
		{[]string{"1", "2"}, []string{"1", "2"}, map[string]string{}},
		{[]string{"a=1", "b=x=y"}, nil, map[string]string{"a": "1", "b": "x=y"}},
		{[]string{"name="}, nil, map[string]string{"name": ""}},
	} {
		args, err := ParseArgs(tc.tokens)
		if err != nil {
			t.Fatal(tc.tokens, err)
		}
		if diff := cmp.Diff(tc.positional, args.Positional); diff != "" {
			t.Errorf("%q positional mismatch (-want +got):\n%s", tc.tokens, diff)
		}
		if diff := cmp.Diff(tc.keywords, args.Keywords); diff != "" {
			t.Errorf("%q keywords mismatch (-want +got):\n%s", tc.tokens, diff)
		}
	}
}

func TestParseArgsMixed(t *testing.T) {
	_, err := ParseArgs([]string{"52.0", "left=4.0"})
	if errors.Cause(err) != ErrMixedArgs {
		t.Fatal("expected ErrMixedArgs, got", err)
	}
}

func TestBind(t *testing.T) {
	args, _ := ParseArgs([]string{"10", "foo: "})
	params, err := args.Bind("log_every", "prefix")
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := params.Float("log_every", 0); f != 10 {
		t.Error("unexpected log_every", params)
	}
	if params.String("prefix", "") != "foo: " {
		t.Error("unexpected prefix", params)
	}

	args, _ = ParseArgs([]string{"prefix=x"})
	params, err = args.Bind("log_every", "prefix")
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := params.Float("log_every", 10); f != 10 {
		t.Error("default not used", params)
	}
	if _, err := params.Require("log_every"); err == nil {
		t.Error("missing required argument not reported")
	}

	args, _ = ParseArgs([]string{"1", "2", "3"})
	if _, err := args.Bind("num"); err == nil {
		t.Error("surplus arguments not reported")
	}

	args, _ = ParseArgs([]string{"num=1", "foo=2"})
	if _, err := args.Bind("num"); err == nil {
		t.Error("unknown keyword not reported")
	}

	args, _ = ParseArgs([]string{"num=abc"})
	params, _ = args.Bind("num")
	if _, err := params.Int("num", 0); err == nil {
		t.Error("invalid integer not reported")
	}
}
