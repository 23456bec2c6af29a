// Package writer serializes elements as OSM XML.
package writer

import (
	"bufio"
	"encoding/xml"
	"io"

	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
	"github.com/omniscale/osmpipe/util"
)

var ErrNotElement = errors.New("not an OSM element")

// XMLWriter writes one <osm> document. The header is written before the first
// element, the footer on Close.
type XMLWriter struct {
	w         *bufio.Writer
	closer    io.Closer
	generator string
	started   bool
	closed    bool
}

// NewXMLWriter returns a writer for w. generator is written into the generator
// attribute of the <osm> root element.
func NewXMLWriter(w io.Writer, generator string) *XMLWriter {
	return &XMLWriter{w: bufio.NewWriter(w), generator: generator}
}

// CreateXML creates filename. Files ending with .bz2, .gz or .zst are
// compressed.
func CreateXML(filename, generator string) (*XMLWriter, error) {
	f, err := util.CreateFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "creating OSM XML file")
	}
	w := NewXMLWriter(f, generator)
	w.closer = f
	return w, nil
}

func (w *XMLWriter) header() {
	if w.started {
		return
	}
	w.started = true
	w.w.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	w.w.WriteString(`<osm version="0.6" generator="`)
	escape(w.w, w.generator)
	w.w.WriteString("\">\n")
}

// Write serializes e. Nil elements and elements of an unknown kind return
// ErrNotElement.
func (w *XMLWriter) Write(e *element.Element) error {
	if e == nil || !e.Kind.Valid() {
		return errors.Wrapf(ErrNotElement, "%v", e)
	}
	w.header()

	name := e.Kind.Name()
	w.w.WriteString("  <" + name)
	for _, attr := range e.Attrs {
		writeAttr(w.w, attr.Key, attr.Value)
	}
	if len(e.Tags) == 0 && len(e.NodeIDs) == 0 && len(e.Members) == 0 {
		w.w.WriteString("/>\n")
		return nil
	}
	w.w.WriteString(">\n")

	for _, ref := range e.NodeIDs {
		w.w.WriteString("    <nd")
		writeAttr(w.w, "ref", ref)
		w.w.WriteString("/>\n")
	}
	for _, m := range e.Members {
		w.w.WriteString("    <member")
		writeAttr(w.w, "type", m.Type)
		writeAttr(w.w, "ref", m.Ref)
		writeAttr(w.w, "role", m.Role)
		w.w.WriteString("/>\n")
	}
	for _, k := range e.Tags.Keys() {
		w.w.WriteString("    <tag")
		writeAttr(w.w, "k", k)
		writeAttr(w.w, "v", e.Tags[k])
		w.w.WriteString("/>\n")
	}
	_, err := w.w.WriteString("  </" + name + ">\n")
	return err
}

// Close writes the footer, flushes all output and closes the file, if the
// writer was created with CreateXML.
func (w *XMLWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.header()
	w.w.WriteString("</osm>\n")
	err := w.w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Abort flushes the elements written so far and closes the file without
// writing the footer. The output is not a valid document afterwards.
func (w *XMLWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func writeAttr(w *bufio.Writer, key, value string) {
	w.WriteByte(' ')
	w.WriteString(key)
	w.WriteString(`="`)
	escape(w, value)
	w.WriteByte('"')
}

func escape(w io.Writer, s string) {
	// EscapeText only fails if w fails, bufio.Writer keeps that error
	// for the next Flush
	xml.EscapeText(w, []byte(s))
}
