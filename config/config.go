// Package config parses the command line and the optional YAML pipeline
// file.
package config

import (
	"flag"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/omniscale/osmpipe/pipeline"
)

// Config is the content of a YAML pipeline file.
type Config struct {
	Quiet       bool         `yaml:"quiet"`
	Debug       bool         `yaml:"debug"`
	Httpprofile string       `yaml:"httpprofile"`
	Pipeline    []StageEntry `yaml:"pipeline"`
}

// StageEntry is one stage of a pipeline file. The stage name is the only
// key, its arguments are a list, a single value or empty:
//
//	- read-xml: [input.osm.bz2]
//	- limit: 100
//	- write-null:
type StageEntry pipeline.StageSpec

func (s *StageEntry) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		*s = StageEntry{Name: name}
		return nil
	}

	var list map[string][]string
	if err := unmarshal(&list); err == nil {
		return s.fromMap(len(list), func(set func(string, []string)) {
			for k, v := range list {
				set(k, v)
			}
		})
	}

	var single map[string]string
	if err := unmarshal(&single); err != nil {
		return errors.New("stage must be a name or a map of name to arguments")
	}
	return s.fromMap(len(single), func(set func(string, []string)) {
		for k, v := range single {
			if v == "" {
				set(k, nil)
			} else {
				set(k, []string{v})
			}
		}
	})
}

func (s *StageEntry) fromMap(n int, each func(set func(string, []string))) error {
	if n != 1 {
		return errors.Errorf("expected one stage per list entry, got %d", n)
	}
	each(func(name string, tokens []string) {
		*s = StageEntry{Name: name, Tokens: tokens}
	})
	return nil
}

// Load reads a YAML pipeline file.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	conf := &Config{}
	if err := yaml.UnmarshalStrict(data, conf); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	return conf, nil
}

func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening config")
	}
	defer f.Close()
	conf, err := Load(f)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	return conf, nil
}

type Options struct {
	ConfigFile  string
	Quiet       bool
	Debug       bool
	Httpprofile string
	Stages      []pipeline.StageSpec
}

// Flags returns the flag set for the global options. Global options come
// before the first stage.
func Flags(opts *Options) *flag.FlagSet {
	flags := flag.NewFlagSet("osmpipe", flag.ContinueOnError)
	flags.StringVar(&opts.ConfigFile, "config", "", "YAML pipeline file")
	flags.BoolVar(&opts.Quiet, "quiet", false, "only log warnings and errors")
	flags.BoolVar(&opts.Debug, "debug", false, "log debug messages")
	flags.StringVar(&opts.Httpprofile, "httpprofile", "", "bind address for pprof and /metrics server")
	return flags
}

// isStage returns whether arg starts a new stage (--name).
func isStage(arg string) bool {
	return len(arg) > 2 && strings.HasPrefix(arg, "--")
}

// SplitArgs splits args into the global options and the stages. Each stage
// starts with --name and contains all following arguments up to the next
// stage.
func SplitArgs(args []string) ([]string, []pipeline.StageSpec) {
	i := 0
	for i < len(args) && !isStage(args[i]) {
		i += 1
	}
	globals := args[:i]

	var stages []pipeline.StageSpec
	for _, arg := range args[i:] {
		if isStage(arg) {
			stages = append(stages, pipeline.StageSpec{Name: arg[2:]})
			continue
		}
		last := &stages[len(stages)-1]
		last.Tokens = append(last.Tokens, arg)
	}
	return globals, stages
}

// Parse parses the command line arguments (without the program name) and
// loads the pipeline file. Stages of the pipeline file come before the
// stages of the command line.
func Parse(args []string) (*Options, error) {
	opts := &Options{}
	globals, stages := SplitArgs(args)

	flags := Flags(opts)
	flags.SetOutput(io.Discard)
	if err := flags.Parse(globals); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, errors.Errorf("unexpected argument %q before first stage", flags.Arg(0))
	}

	if opts.ConfigFile != "" {
		conf, err := LoadFile(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		opts.Quiet = opts.Quiet || conf.Quiet
		opts.Debug = opts.Debug || conf.Debug
		if opts.Httpprofile == "" {
			opts.Httpprofile = conf.Httpprofile
		}
		for _, s := range conf.Pipeline {
			opts.Stages = append(opts.Stages, pipeline.StageSpec(s))
		}
	}
	opts.Stages = append(opts.Stages, stages...)
	return opts, nil
}
