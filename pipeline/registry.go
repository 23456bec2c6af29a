package pipeline

import (
	"sort"

	"github.com/pkg/errors"
)

// Registration describes a stage that can be selected by name.
type Registration struct {
	// Name is the stage name, e.g. "bbox". The command line option is
	// "--" + Name.
	Name string
	// Usage lists the arguments, e.g. "top left bottom right".
	Usage string
	Help  string
	New   func(args Args) (Stage, error)
}

var registry = map[string]Registration{}

// Register makes a stage available by name. It is meant to be called from
// init functions and panics on duplicate names.
func Register(r Registration) {
	if r.New == nil {
		panic("pipeline: Register " + r.Name + " without New")
	}
	if _, dup := registry[r.Name]; dup {
		panic("pipeline: Register called twice for " + r.Name)
	}
	registry[r.Name] = r
}

func Lookup(name string) (Registration, bool) {
	r, ok := registry[name]
	return r, ok
}

// Registered returns all registrations sorted by name.
func Registered() []Registration {
	regs := make([]Registration, 0, len(registry))
	for _, r := range registry {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Name < regs[j].Name })
	return regs
}

// StageSpec is a stage name with its unparsed arguments.
type StageSpec struct {
	Name   string
	Tokens []string
}

// Build creates the stages for specs. All returned errors are ConfigErrors.
func Build(specs []StageSpec) ([]Stage, error) {
	stages := make([]Stage, 0, len(specs))
	for _, spec := range specs {
		reg, ok := Lookup(spec.Name)
		if !ok {
			return nil, NewConfigError("", errors.Wrap(ErrUnknownStage, spec.Name))
		}
		args, err := ParseArgs(spec.Tokens)
		if err != nil {
			return nil, NewConfigError(spec.Name, err)
		}
		stage, err := reg.New(args)
		if err != nil {
			if IsConfigError(err) {
				return nil, err
			}
			return nil, NewConfigError(spec.Name, err)
		}
		stage.Name = spec.Name
		stages = append(stages, stage)
	}
	return stages, nil
}
