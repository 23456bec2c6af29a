package postgres

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/lib/pq/hstore"
	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe/element"
)

type ColumnSpec struct {
	Name string
	Type string
}

func (col *ColumnSpec) AsSQL() string {
	return fmt.Sprintf("\"%s\" %s", col.Name, col.Type)
}

// TableSpec describes the table for one element kind. Row converts an
// element into the values for Columns.
type TableSpec struct {
	Schema   string
	FullName string
	Kind     element.Kind
	Columns  []ColumnSpec
	Row      func(e *element.Element) ([]interface{}, error)
}

func (spec *TableSpec) CreateTableSQL() string {
	var cols []string
	for _, col := range spec.Columns {
		cols = append(cols, col.AsSQL())
	}
	columnSQL := strings.Join(cols, ",\n")
	return fmt.Sprintf(`
        CREATE TABLE "%s"."%s" (
            %s
        );`,
		spec.Schema,
		spec.FullName,
		columnSQL,
	)
}

func (spec *TableSpec) DropTableSQL() string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS "%s"."%s"`, spec.Schema, spec.FullName)
}

func (spec *TableSpec) CopySQL() string {
	names := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		names[i] = col.Name
	}
	return pq.CopyInSchema(spec.Schema, spec.FullName, names...)
}

var commonColumns = []ColumnSpec{
	{"id", "TEXT"},
	{"attrs", "HSTORE"},
	{"tags", "HSTORE"},
}

// NewTableSpecs returns the specs of the points, ways and relations tables.
func NewTableSpecs(schema, prefix string) []*TableSpec {
	return []*TableSpec{
		{
			Schema:   schema,
			FullName: prefix + "points",
			Kind:     element.Point,
			Columns:  append(append([]ColumnSpec{}, commonColumns...), ColumnSpec{"lat", "DOUBLE PRECISION"}, ColumnSpec{"lon", "DOUBLE PRECISION"}),
			Row:      pointRow,
		},
		{
			Schema:   schema,
			FullName: prefix + "ways",
			Kind:     element.Way,
			Columns:  append(append([]ColumnSpec{}, commonColumns...), ColumnSpec{"refs", "TEXT[]"}),
			Row:      wayRow,
		},
		{
			Schema:   schema,
			FullName: prefix + "relations",
			Kind:     element.Relation,
			Columns: append(append([]ColumnSpec{}, commonColumns...),
				ColumnSpec{"member_types", "TEXT[]"},
				ColumnSpec{"member_refs", "TEXT[]"},
				ColumnSpec{"member_roles", "TEXT[]"},
			),
			Row: relationRow,
		},
	}
}

// hstoreText returns m in the hstore text format. COPY encodes []byte values
// as bytea, so hstore values are passed as strings.
func hstoreText(m map[string]string) string {
	h := hstore.Hstore{Map: make(map[string]sql.NullString, len(m))}
	for k, v := range m {
		h.Map[k] = sql.NullString{String: v, Valid: true}
	}
	v, _ := h.Value()
	switch v := v.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	}
	return ""
}

// attrsHstore skips the attributes stored in their own columns.
func attrsHstore(attrs element.Attrs) string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		switch a.Key {
		case "id", "lat", "lon":
			continue
		}
		m[a.Key] = a.Value
	}
	return hstoreText(m)
}

func commonRow(e *element.Element) []interface{} {
	return []interface{}{e.ID(), attrsHstore(e.Attrs), hstoreText(e.Tags)}
}

func pointRow(e *element.Element) ([]interface{}, error) {
	lat, err := strconv.ParseFloat(e.Attr("lat"), 64)
	if err != nil {
		return nil, errors.Wrapf(err, "lat of node %s", e.ID())
	}
	lon, err := strconv.ParseFloat(e.Attr("lon"), 64)
	if err != nil {
		return nil, errors.Wrapf(err, "lon of node %s", e.ID())
	}
	return append(commonRow(e), lat, lon), nil
}

func wayRow(e *element.Element) ([]interface{}, error) {
	refs := e.NodeIDs
	if refs == nil {
		refs = []string{}
	}
	return append(commonRow(e), pq.Array(refs)), nil
}

func relationRow(e *element.Element) ([]interface{}, error) {
	types := make([]string, len(e.Members))
	refs := make([]string, len(e.Members))
	roles := make([]string, len(e.Members))
	for i, m := range e.Members {
		types[i] = m.Type
		refs[i] = m.Ref
		roles[i] = m.Role
	}
	return append(commonRow(e), pq.Array(types), pq.Array(refs), pq.Array(roles)), nil
}
