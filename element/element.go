package element

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrUnknownMemberType = errors.New("unknown member type")
	ErrInvalidElement    = errors.New("invalid element")
)

// Kind discriminates points, ways and relations.
type Kind int

const (
	Point Kind = iota + 1
	Way
	Relation
)

// Name returns the OSM name of the kind as used in XML and member types.
func (k Kind) Name() string {
	switch k {
	case Point:
		return "node"
	case Way:
		return "way"
	case Relation:
		return "relation"
	}
	return ""
}

func (k Kind) String() string {
	if n := k.Name(); n != "" {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid returns whether k is one of Point, Way or Relation.
func (k Kind) Valid() bool {
	return k >= Point && k <= Relation
}

var KindValues = map[string]Kind{
	"node":     Point,
	"way":      Way,
	"relation": Relation,
}

// ParseKind returns the Kind for an OSM type name.
func ParseKind(name string) (Kind, error) {
	k, ok := KindValues[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownMemberType, "%q", name)
	}
	return k, nil
}

type Tags map[string]string

func (t *Tags) String() string {
	return fmt.Sprintf("%v", (map[string]string)(*t))
}

// Keys returns all tag keys in sorted order.
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Attr struct {
	Key   string
	Value string
}

// Attrs are the XML attributes of an element (id, lat, lon, version, ...).
// Keys are unique and the order of the source is kept.
type Attrs []Attr

func (a Attrs) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing key or appends a new attribute.
func (a *Attrs) Set(key, value string) {
	for i := range *a {
		if (*a)[i].Key == key {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attr{Key: key, Value: value})
}

type Member struct {
	// Type is the declared member type as found in the input. It is only
	// resolved by stages that need it, see Kind.
	Type string
	Ref  string
	Role string
}

// Kind resolves the declared member type.
func (m *Member) Kind() (Kind, error) {
	return ParseKind(m.Type)
}

// Element is a single point, way or relation. NodeIDs is only used by ways
// and Members only by relations.
type Element struct {
	Kind    Kind
	Attrs   Attrs
	Tags    Tags
	NodeIDs []string
	Members []Member
}

func NewPoint(id string, lat, lon string) *Element {
	return &Element{
		Kind:  Point,
		Attrs: Attrs{{"id", id}, {"lat", lat}, {"lon", lon}},
		Tags:  Tags{},
	}
}

func NewWay(id string, nodeIDs ...string) *Element {
	return &Element{
		Kind:    Way,
		Attrs:   Attrs{{"id", id}},
		Tags:    Tags{},
		NodeIDs: nodeIDs,
	}
}

func NewRelation(id string, members ...Member) *Element {
	return &Element{
		Kind:    Relation,
		Attrs:   Attrs{{"id", id}},
		Tags:    Tags{},
		Members: members,
	}
}

func (e *Element) ID() string {
	id, _ := e.Attrs.Get("id")
	return id
}

func (e *Element) Attr(key string) string {
	v, _ := e.Attrs.Get(key)
	return v
}

// Validate checks the minimal structure of an element: a known kind,
// an id and, for points, coordinates.
func (e *Element) Validate() error {
	if e == nil {
		return errors.Wrap(ErrInvalidElement, "nil element")
	}
	if !e.Kind.Valid() {
		return errors.Wrapf(ErrInvalidElement, "kind %d", int(e.Kind))
	}
	if _, ok := e.Attrs.Get("id"); !ok {
		return errors.Wrapf(ErrInvalidElement, "%s without id", e.Kind)
	}
	if e.Kind == Point {
		_, hasLat := e.Attrs.Get("lat")
		_, hasLon := e.Attrs.Get("lon")
		if !hasLat || !hasLon {
			return errors.Wrapf(ErrInvalidElement, "node %s without lat/lon", e.ID())
		}
	}
	return nil
}

func (e *Element) String() string {
	if e == nil {
		return "<nil>"
	}
	return e.Kind.String() + "/" + e.ID()
}
