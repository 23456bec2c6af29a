// Package binary encodes elements for the on-disk cache. It uses the
// protobuf varint and length-delimited encodings, but no message schema:
// fields are written in a fixed order.
package binary

import (
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
)

func encodeStrings(buf *proto.Buffer, strs ...string) error {
	for _, s := range strs {
		if err := buf.EncodeStringBytes(s); err != nil {
			return err
		}
	}
	return nil
}

// MarshalElement encodes kind, attributes (in order), tags (sorted by key),
// node refs and members of e.
func MarshalElement(e *element.Element) ([]byte, error) {
	buf := proto.NewBuffer(nil)
	buf.EncodeVarint(uint64(e.Kind))

	buf.EncodeVarint(uint64(len(e.Attrs)))
	for _, attr := range e.Attrs {
		if err := encodeStrings(buf, attr.Key, attr.Value); err != nil {
			return nil, err
		}
	}

	buf.EncodeVarint(uint64(len(e.Tags)))
	for _, k := range e.Tags.Keys() {
		if err := encodeStrings(buf, k, e.Tags[k]); err != nil {
			return nil, err
		}
	}

	buf.EncodeVarint(uint64(len(e.NodeIDs)))
	if err := encodeStrings(buf, e.NodeIDs...); err != nil {
		return nil, err
	}

	buf.EncodeVarint(uint64(len(e.Members)))
	for _, m := range e.Members {
		if err := encodeStrings(buf, m.Type, m.Ref, m.Role); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

type decoder struct {
	buf *proto.Buffer
	err error
}

func (d *decoder) count() int {
	if d.err != nil {
		return 0
	}
	var n uint64
	n, d.err = d.buf.DecodeVarint()
	return int(n)
}

func (d *decoder) str() string {
	if d.err != nil {
		return ""
	}
	var s string
	s, d.err = d.buf.DecodeStringBytes()
	return s
}

func UnmarshalElement(data []byte) (*element.Element, error) {
	d := &decoder{buf: proto.NewBuffer(data)}
	e := &element.Element{Kind: element.Kind(d.count())}

	if n := d.count(); n > 0 {
		e.Attrs = make(element.Attrs, n)
		for i := range e.Attrs {
			e.Attrs[i].Key = d.str()
			e.Attrs[i].Value = d.str()
		}
	}

	n := d.count()
	e.Tags = make(element.Tags, n)
	for i := 0; i < n; i++ {
		k := d.str()
		e.Tags[k] = d.str()
	}

	if n := d.count(); n > 0 {
		e.NodeIDs = make([]string, n)
		for i := range e.NodeIDs {
			e.NodeIDs[i] = d.str()
		}
	}

	if n := d.count(); n > 0 {
		e.Members = make([]element.Member, n)
		for i := range e.Members {
			e.Members[i].Type = d.str()
			e.Members[i].Ref = d.str()
			e.Members[i].Role = d.str()
		}
	}

	if d.err != nil {
		return nil, errors.Wrap(d.err, "decoding cached element")
	}
	if !e.Kind.Valid() {
		return nil, errors.Errorf("decoding cached element: invalid kind %d", int(e.Kind))
	}
	return e, nil
}
