package pipeline

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
)

func init() {
	Register(Registration{
		Name: "test-points",
		New: func(args Args) (Stage, error) {
			params, err := args.Bind("num")
			if err != nil {
				return Stage{}, err
			}
			num, err := params.Int("num", 1)
			if err != nil {
				return Stage{}, err
			}
			return NewSource("", SourceFunc(func() (Stream, error) {
				elems := make([]*element.Element, num)
				for i := range elems {
					elems[i] = element.NewPoint("1", "0", "0")
				}
				return FromSlice(elems...), nil
			})), nil
		},
	})
	Register(Registration{
		Name: "test-null",
		New: func(args Args) (Stage, error) {
			return NewSink("", SinkFunc(func(in Stream) error {
				_, err := Drain(in)
				return err
			})), nil
		},
	})
}

func TestBuild(t *testing.T) {
	stages, err := Build([]StageSpec{
		{Name: "test-points", Tokens: []string{"num=3"}},
		{Name: "test-null"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if stages[0].Name != "test-points" || stages[1].Name != "test-null" {
		t.Error("stage names not set", stages)
	}
	p, err := New(stages...)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c := p.Counters().Count(0); c.Nodes != 3 {
		t.Error("unexpected count", c)
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := Build([]StageSpec{{Name: "no-such-stage"}})
	if !IsConfigError(err) || errors.Cause(err) != ErrUnknownStage {
		t.Error("expected unknown stage error, got", err)
	}

	_, err = Build([]StageSpec{{Name: "test-points", Tokens: []string{"3", "num=3"}}})
	if !IsConfigError(err) {
		t.Error("expected config error for mixed arguments, got", err)
	}

	_, err = Build([]StageSpec{{Name: "test-points", Tokens: []string{"three"}}})
	if !IsConfigError(err) {
		t.Error("expected config error for invalid number, got", err)
	}
}

func TestRegistered(t *testing.T) {
	regs := Registered()
	for i := 1; i < len(regs); i++ {
		if regs[i-1].Name >= regs[i].Name {
			t.Fatal("registrations not sorted", regs)
		}
	}
}
