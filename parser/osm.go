// Package parser converts elements parsed by github.com/omniscale/go-osm
// into pipeline elements. The format specific readers live in the
// sub-packages.
package parser

import (
	"strconv"
	"time"

	osm "github.com/omniscale/go-osm"

	"github.com/omniscale/osmpipe/element"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatCoord(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

func baseElement(kind element.Kind, e *osm.Element) *element.Element {
	result := &element.Element{
		Kind:  kind,
		Attrs: element.Attrs{{Key: "id", Value: formatID(e.ID)}},
		Tags:  make(element.Tags, len(e.Tags)),
	}
	for k, v := range e.Tags {
		result.Tags[k] = v
	}
	return result
}

func addMetadata(e *element.Element, md *osm.Metadata) {
	if md == nil {
		return
	}
	if md.Version != 0 {
		e.Attrs.Set("version", strconv.FormatInt(int64(md.Version), 10))
	}
	if !md.Timestamp.IsZero() {
		e.Attrs.Set("timestamp", md.Timestamp.UTC().Format(time.RFC3339))
	}
	if md.Changeset != 0 {
		e.Attrs.Set("changeset", strconv.FormatInt(md.Changeset, 10))
	}
	if md.UserID != 0 {
		e.Attrs.Set("uid", strconv.FormatInt(int64(md.UserID), 10))
	}
	if md.UserName != "" {
		e.Attrs.Set("user", md.UserName)
	}
}

func FromNode(n *osm.Node) *element.Element {
	e := baseElement(element.Point, &n.Element)
	e.Attrs = append(e.Attrs,
		element.Attr{Key: "lat", Value: formatCoord(n.Lat)},
		element.Attr{Key: "lon", Value: formatCoord(n.Long)},
	)
	addMetadata(e, n.Metadata)
	return e
}

func FromWay(w *osm.Way) *element.Element {
	e := baseElement(element.Way, &w.Element)
	e.NodeIDs = make([]string, len(w.Refs))
	for i, ref := range w.Refs {
		e.NodeIDs[i] = formatID(ref)
	}
	addMetadata(e, w.Metadata)
	return e
}

func memberTypeName(t osm.MemberType) string {
	switch t {
	case osm.NodeMember:
		return "node"
	case osm.WayMember:
		return "way"
	case osm.RelationMember:
		return "relation"
	}
	return strconv.Itoa(int(t))
}

func FromRelation(r *osm.Relation) *element.Element {
	e := baseElement(element.Relation, &r.Element)
	e.Members = make([]element.Member, len(r.Members))
	for i, m := range r.Members {
		e.Members[i] = element.Member{
			Type: memberTypeName(m.Type),
			Ref:  formatID(m.ID),
			Role: m.Role,
		}
	}
	addMetadata(e, r.Metadata)
	return e
}
