package stages

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/log"
	"github.com/omniscale/osmpipe/pipeline"
)

const defaultLogEvery = 10 * time.Second

// Progress passes all elements and periodically logs the number of elements
// passed so far. The first element is always logged. An interval <= 0 logs
// every element.
type Progress struct {
	Every  time.Duration
	Prefix string

	logf  func(format string, v ...interface{})
	count int64
}

func NewProgress(every time.Duration, prefix string) *Progress {
	return &Progress{Every: every, Prefix: prefix, logf: log.Printf}
}

// Count returns the number of elements passed by the most recent Apply.
func (p *Progress) Count() int64 {
	return p.count
}

func (p *Progress) Apply(in pipeline.Stream) pipeline.Stream {
	gate := &rate.Sometimes{Interval: p.Every}
	if p.Every <= 0 {
		gate = &rate.Sometimes{Every: 1}
	}
	p.count = 0
	logf := p.logf
	if logf == nil {
		logf = log.Printf
	}
	return pipeline.StreamFunc(func() (*element.Element, error) {
		e, err := in.Next()
		if err != nil {
			return nil, err
		}
		p.count += 1
		gate.Do(func() {
			logf("[progress] %sProcessed %d elements", p.Prefix, p.count)
		})
		return e, nil
	})
}

func init() {
	pipeline.Register(pipeline.Registration{
		Name:  "log",
		Usage: "[log_every] [prefix]",
		Help:  "log the number of processed elements every log_every seconds (default 10)",
		New: func(args pipeline.Args) (pipeline.Stage, error) {
			params, err := args.Bind("log_every", "prefix")
			if err != nil {
				return pipeline.Stage{}, err
			}
			secs, err := params.Float("log_every", defaultLogEvery.Seconds())
			if err != nil {
				return pipeline.Stage{}, err
			}
			every := time.Duration(secs * float64(time.Second))
			return pipeline.NewTransform("", NewProgress(every, params.String("prefix", ""))), nil
		},
	})
}
