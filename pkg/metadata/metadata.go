// Package metadata reads and writes the GeoParquet "geo" schema metadata.
package metadata

import (
	"encoding/json"
	"sort"
	"strings"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/geom"

	"github.com/apache/arrow-go/v18/arrow"
)

// Key is the schema metadata key holding the GeoParquet document.
const Key = "geo"

// Version is written by Build.
const Version = "1.1.0"

type GeoMetadata struct {
	Version       string                     `json:"version"`
	PrimaryColumn string                     `json:"primary_column"`
	Columns       map[string]*ColumnMetadata `json:"columns"`
}

type ColumnMetadata struct {
	Encoding      string    `json:"encoding"`
	GeometryTypes []string  `json:"geometry_types"`
	CRS           any       `json:"crs,omitempty"`
	BBox          []float64 `json:"bbox,omitempty"`
}

// Parse decodes a "geo" document. Unknown encodings and geometry types
// are reported as malformed metadata.
func Parse(data string) (*GeoMetadata, error) {
	var md GeoMetadata
	if err := json.Unmarshal([]byte(data), &md); err != nil {
		return nil, errkind.Wrap(errkind.MalformedGeoMetadata, err, "failed to parse geo metadata")
	}
	if md.Columns == nil {
		return nil, errkind.New(errkind.MalformedGeoMetadata, "geo metadata has no columns")
	}

	for name, col := range md.Columns {
		if col == nil {
			return nil, errkind.New(errkind.MalformedGeoMetadata, "geo metadata column %q is empty", name)
		}
		if _, err := col.EncodingTag(); err != nil {
			return nil, errkind.Wrap(errkind.MalformedGeoMetadata, err, "column %q", name)
		}
		for _, t := range col.GeometryTypes {
			tag, err := geom.ParseTag(t)
			if err != nil {
				return nil, errkind.Wrap(errkind.MalformedGeoMetadata, err, "column %q", name)
			}
			if !tag.Concrete() {
				return nil, errkind.New(errkind.MalformedGeoMetadata, "column %q: %q is not a geometry type", name, t)
			}
		}
	}
	return &md, nil
}

// FromSchema parses the "geo" entry of the schema metadata. It returns
// nil without error when the entry is absent.
func FromSchema(schema *arrow.Schema) (*GeoMetadata, error) {
	if schema == nil {
		return nil, nil
	}
	md := schema.Metadata()
	idx := md.FindKey(Key)
	if idx < 0 {
		return nil, nil
	}
	return Parse(md.Values()[idx])
}

// Column returns the metadata of the named column.
func (m *GeoMetadata) Column(name string) (*ColumnMetadata, bool) {
	if m == nil {
		return nil, false
	}
	col, ok := m.Columns[name]
	return col, ok
}

func (c *ColumnMetadata) EncodingTag() (geom.Encoding, error) {
	return geom.ParseEncoding(c.Encoding)
}

// Tags returns the distinct declared geometry types in declaration
// order, so "Point Z" and "PointZ" count once.
func (c *ColumnMetadata) Tags() []geom.Tag {
	var tags []geom.Tag
	seen := make(map[geom.Tag]bool, len(c.GeometryTypes))
	for _, t := range c.GeometryTypes {
		tag, err := geom.ParseTag(t)
		if err != nil || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// TypeString is the geometry-type literal for the column: "Unknown" for
// no declared types, the single type, or "Mixed".
func (c *ColumnMetadata) TypeString() string {
	tags := c.Tags()
	switch len(tags) {
	case 0:
		return geom.Unknown.String()
	case 1:
		return tags[0].String()
	default:
		return geom.Mixed.String()
	}
}

// EncodingString is the canonical encoding literal for the column.
func (c *ColumnMetadata) EncodingString() string {
	enc, err := c.EncodingTag()
	if err != nil {
		return c.Encoding
	}
	return enc.String()
}

// Build describes the given columns. The primary column is the first
// name in sorted order unless primary is set.
func Build(primary string, columns map[string]ColumnMetadata) *GeoMetadata {
	md := &GeoMetadata{
		Version:       Version,
		PrimaryColumn: primary,
		Columns:       make(map[string]*ColumnMetadata, len(columns)),
	}

	names := make([]string, 0, len(columns))
	for name, col := range columns {
		col := col
		if col.GeometryTypes == nil {
			col.GeometryTypes = []string{}
		}
		md.Columns[name] = &col
		names = append(names, name)
	}
	if md.PrimaryColumn == "" && len(names) > 0 {
		sort.Strings(names)
		md.PrimaryColumn = names[0]
	}
	return md
}

// Encode serializes m for the schema metadata.
func (m *GeoMetadata) Encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", errkind.Wrap(errkind.Internal, err, "failed to encode geo metadata")
	}
	return string(b), nil
}

// WithSchema returns schema with the "geo" entry replaced by m.
func (m *GeoMetadata) WithSchema(schema *arrow.Schema) (*arrow.Schema, error) {
	doc, err := m.Encode()
	if err != nil {
		return nil, err
	}

	old := schema.Metadata()
	keys := []string{Key}
	vals := []string{doc}
	for i, k := range old.Keys() {
		if !strings.EqualFold(k, Key) {
			keys = append(keys, k)
			vals = append(vals, old.Values()[i])
		}
	}
	md := arrow.NewMetadata(keys, vals)
	return arrow.NewSchema(schema.Fields(), &md), nil
}
