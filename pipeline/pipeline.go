package pipeline

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/log"
	"github.com/omniscale/osmpipe/stats"
)

type StageKind int

const (
	SourceStage StageKind = iota + 1
	TransformStage
	SinkStage
)

// Stage is a single step of a pipeline. Exactly one of Source, Transform
// and Sink is set.
type Stage struct {
	Name      string
	Source    Source
	Transform Transform
	Sink      Sink
}

func NewSource(name string, s Source) Stage       { return Stage{Name: name, Source: s} }
func NewTransform(name string, t Transform) Stage { return Stage{Name: name, Transform: t} }
func NewSink(name string, s Sink) Stage           { return Stage{Name: name, Sink: s} }

func (s Stage) Kind() StageKind {
	switch {
	case s.Source != nil:
		return SourceStage
	case s.Transform != nil:
		return TransformStage
	case s.Sink != nil:
		return SinkStage
	}
	return 0
}

// Pipeline is a validated chain of stages. A pipeline runs only once.
type Pipeline struct {
	stages   []Stage
	counters *stats.Counters
	ran      bool
}

// New validates the stages and returns a pipeline. The first stage must be a
// source, a sink is only allowed as last stage and at least one stage must
// consume the output of the source.
func New(stages ...Stage) (*Pipeline, error) {
	if len(stages) < 2 {
		return nil, NewConfigError("", ErrTooFewStages)
	}
	if stages[0].Kind() != SourceStage {
		return nil, NewConfigError("", errors.Wrap(ErrFirstNotSource, stages[0].Name))
	}
	for i, s := range stages[1:] {
		switch s.Kind() {
		case SourceStage:
			return nil, NewConfigError("", errors.Wrap(ErrSourceNotFirst, s.Name))
		case SinkStage:
			if i+1 != len(stages)-1 {
				return nil, NewConfigError("", errors.Wrap(ErrSinkNotLast, s.Name))
			}
		case TransformStage:
		default:
			return nil, NewConfigError("", errors.Errorf("stage %q has no implementation", s.Name))
		}
	}

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return &Pipeline{
		stages:   stages,
		counters: stats.NewCounters(names),
	}, nil
}

// Counters returns the element counts for each stage.
func (p *Pipeline) Counters() *stats.Counters {
	return p.counters
}

// Run pulls all elements through the pipeline. The context is checked before
// each element is requested from the last stage. Streams that implement
// io.Closer are closed after the run, the source last.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	if p.ran {
		return ErrAlreadyRun
	}
	p.ran = true

	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	ctx, span := otel.Tracer("github.com/omniscale/osmpipe/pipeline").Start(ctx, "pipeline.run")
	span.SetAttributes(attribute.StringSlice("pipeline.stages", names))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	source, err := p.stages[0].Source.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %s", p.stages[0].Name)
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "closing stream")
			}
		}
	}()
	addCloser := func(s Stream) {
		if c, ok := s.(io.Closer); ok {
			closers = append(closers, c)
		}
	}

	addCloser(source)
	stream := p.count(0, source)
	last := p.stages[len(p.stages)-1]
	for i, s := range p.stages[1:] {
		if s.Kind() != TransformStage {
			break
		}
		out := s.Transform.Apply(stream)
		addCloser(out)
		stream = p.count(i+1, out)
	}
	stream = withContext(ctx, stream)

	if last.Kind() == SinkStage {
		err = last.Sink.Consume(stream)
	} else {
		_, err = Drain(stream)
	}
	if err != nil {
		return err
	}

	for i, s := range p.stages {
		if s.Kind() == SinkStage {
			continue
		}
		log.Printf("[info] %s: %s", s.Name, p.counters.Count(i))
	}
	return nil
}

func (p *Pipeline) count(position int, in Stream) Stream {
	return StreamFunc(func() (*element.Element, error) {
		e, err := in.Next()
		if err != nil {
			return nil, err
		}
		if e != nil {
			p.counters.Add(position, e.Kind)
		}
		return e, nil
	})
}

func withContext(ctx context.Context, in Stream) Stream {
	if ctx.Done() == nil {
		return in
	}
	return StreamFunc(func() (*element.Element, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return in.Next()
	})
}
