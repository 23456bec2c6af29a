package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Args are the tokens passed to a single stage. Either all tokens are
// key=value pairs or none of them is.
type Args struct {
	Positional []string
	Keywords   map[string]string
}

// ParseArgs splits tokens into positional or keyword arguments. Keywords are
// split at the first '='. Mixing both forms returns ErrMixedArgs.
func ParseArgs(tokens []string) (Args, error) {
	args := Args{Keywords: map[string]string{}}
	withEq := 0
	for _, tok := range tokens {
		if strings.Contains(tok, "=") {
			withEq += 1
		}
	}
	switch {
	case withEq == len(tokens):
		for _, tok := range tokens {
			parts := strings.SplitN(tok, "=", 2)
			args.Keywords[parts[0]] = parts[1]
		}
	case withEq == 0:
		args.Positional = append([]string(nil), tokens...)
	default:
		return Args{}, errors.Wrapf(ErrMixedArgs, "%q", tokens)
	}
	return args, nil
}

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a.Positional) + len(a.Keywords)
}

// Bind maps the arguments to the named parameters. Positional arguments are
// assigned in order. Unknown keywords and surplus positional arguments are
// errors.
func (a Args) Bind(names ...string) (Params, error) {
	if len(a.Positional) > len(names) {
		return nil, errors.Errorf("takes at most %d arguments, got %d", len(names), len(a.Positional))
	}
	params := Params{}
	for i, v := range a.Positional {
		params[names[i]] = v
	}
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	var unknown []string
	for k, v := range a.Keywords {
		if !known[k] {
			unknown = append(unknown, k)
			continue
		}
		params[k] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errors.Errorf("unknown arguments %s", strings.Join(unknown, ", "))
	}
	return params, nil
}

// Params are bound stage arguments.
type Params map[string]string

// Require returns the value of name or an error if it is missing.
func (p Params) Require(name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", errors.Errorf("missing argument %s", name)
	}
	return v, nil
}

func (p Params) String(name, def string) string {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Errorf("%s: %q is not a number", name, v)
	}
	return f, nil
}

func (p Params) Int(name string, def int) (int, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Errorf("%s: %q is not an integer", name, v)
	}
	return i, nil
}

// RequireFloat returns the float value of name or an error if it is missing.
func (p Params) RequireFloat(name string) (float64, error) {
	if _, err := p.Require(name); err != nil {
		return 0, err
	}
	return p.Float(name, 0)
}
