// Package osmxml reads OSM XML files (.osm) element by element.
package osmxml

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/util"
)

var (
	ErrUnknownElement    = errors.New("unknown XML element")
	ErrUnexpectedElement = errors.New("unexpected XML element")
)

// Parser is a stream based parser for OSM XML files. Nodes, ways and
// relations are returned by Next once their closing tag was read.
type Parser struct {
	decoder *xml.Decoder
	current *element.Element
	closer  io.Closer
	err     error
}

// New returns a parser for r.
func New(r io.Reader) *Parser {
	return &Parser{decoder: xml.NewDecoder(r)}
}

// Open returns a parser for filename. Files ending with .bz2, .gz or .zst
// are decompressed.
func Open(filename string) (*Parser, error) {
	r, err := util.OpenFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening OSM XML file")
	}
	p := New(r)
	p.closer = r
	return p, nil
}

// Close closes the underlying file, if the parser was created with Open.
func (p *Parser) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// Next returns the next element. Returns io.EOF after the last element.
func (p *Parser) Next() (*element.Element, error) {
	if p.err != nil {
		return nil, p.err
	}
	e, err := p.next()
	if err != nil {
		p.err = err
		return nil, err
	}
	return e, nil
}

func (p *Parser) next() (*element.Element, error) {
	for {
		token, err := p.decoder.Token()
		if err == io.EOF {
			if p.current != nil {
				return nil, errors.Wrapf(io.ErrUnexpectedEOF, "unclosed %s", p.current.Kind)
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, errors.Wrap(err, "parsing OSM XML")
		}

		switch tok := token.(type) {
		case xml.StartElement:
			if err := p.start(tok); err != nil {
				line, _ := p.decoder.InputPos()
				return nil, errors.Wrapf(err, "line %d", line)
			}
		case xml.EndElement:
			kind, ok := element.KindValues[tok.Name.Local]
			if !ok || p.current == nil || p.current.Kind != kind {
				continue
			}
			e := p.current
			p.current = nil
			if err := e.Validate(); err != nil {
				line, _ := p.decoder.InputPos()
				return nil, errors.Wrapf(err, "line %d", line)
			}
			return e, nil
		}
	}
}

func (p *Parser) start(tok xml.StartElement) error {
	name := tok.Name.Local
	switch name {
	case "osm", "bounds", "bound":
		// ignore
		return nil
	case "node", "way", "relation":
		if p.current != nil {
			return errors.Wrapf(ErrUnexpectedElement, "<%s> inside %s", name, p.current)
		}
		e := &element.Element{Kind: element.KindValues[name], Tags: element.Tags{}}
		for _, attr := range tok.Attr {
			e.Attrs.Set(attr.Name.Local, attr.Value)
		}
		p.current = e
	case "tag":
		if p.current == nil {
			return errors.Wrap(ErrUnexpectedElement, "<tag> outside of element")
		}
		k, hasK := attrValue(tok.Attr, "k")
		v, hasV := attrValue(tok.Attr, "v")
		if !hasK || !hasV {
			return errors.Errorf("<tag> without k/v in %s", p.current)
		}
		p.current.Tags[k] = v
	case "nd":
		if p.current == nil || p.current.Kind != element.Way {
			return errors.Wrap(ErrUnexpectedElement, "<nd> outside of way")
		}
		ref, ok := attrValue(tok.Attr, "ref")
		if !ok {
			return errors.Errorf("<nd> without ref in %s", p.current)
		}
		p.current.NodeIDs = append(p.current.NodeIDs, ref)
	case "member":
		if p.current == nil || p.current.Kind != element.Relation {
			return errors.Wrap(ErrUnexpectedElement, "<member> outside of relation")
		}
		m := element.Member{}
		m.Type, _ = attrValue(tok.Attr, "type")
		m.Role, _ = attrValue(tok.Attr, "role")
		ref, ok := attrValue(tok.Attr, "ref")
		if !ok {
			return errors.Errorf("<member> without ref in %s", p.current)
		}
		m.Ref = ref
		p.current.Members = append(p.current.Members, m)
	default:
		return errors.Wrapf(ErrUnknownElement, "<%s>", name)
	}
	return nil
}

func attrValue(attrs []xml.Attr, name string) (string, bool) {
	for _, attr := range attrs {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}
