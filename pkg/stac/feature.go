package stac

import (
	"encoding/json"
	"errors"
	"fmt"

	gostac "github.com/planetlabs/go-stac"
)

// ErrNotFeatureCollection is returned when a document is not a GeoJSON
// FeatureCollection.
var ErrNotFeatureCollection = errors.New("stac: document is not a feature collection")

var (
	productHrefPath   = []string{"assets", "PRODUCT", "href"}
	quicklookHrefPath = []string{"assets", "QUICKLOOK", "href"}
)

// Feature is one record of a catalogue response. Top-level members that are
// not part of the GeoJSON Feature object (assets, links, collection, ...) are
// kept verbatim in Members.
type Feature struct {
	Type       string
	ID         Value
	Bbox       []float64
	Geometry   Value
	Properties map[string]Value

	// Members is an object holding every other top-level member.
	Members Value
}

var knownFeatureFields = map[string]bool{
	"type": true, "id": true, "bbox": true, "geometry": true, "properties": true,
}

// UnmarshalJSON implements custom unmarshaling to capture foreign members.
func (f *Feature) UnmarshalJSON(data []byte) error {
	var root Value
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}
	obj, ok := root.AsObject()
	if !ok {
		return fmt.Errorf("stac: feature is a JSON %s, not an object", root.Kind())
	}

	parsed := Feature{Properties: map[string]Value{}}
	members := map[string]Value{}
	for key, val := range obj {
		if !knownFeatureFields[key] {
			members[key] = val
		}
	}
	parsed.Members = Object(members)

	if t, ok := obj["type"]; ok {
		parsed.Type, _ = t.AsString()
	}
	parsed.ID = obj["id"]
	parsed.Geometry = obj["geometry"]

	if bbox, ok := obj["bbox"]; ok && !bbox.IsNull() {
		coords, ok := bbox.AsArray()
		if !ok {
			return fmt.Errorf("stac: feature bbox is a JSON %s, not an array", bbox.Kind())
		}
		parsed.Bbox = make([]float64, len(coords))
		for i, c := range coords {
			n, ok := c.AsFloat()
			if !ok {
				return fmt.Errorf("stac: feature bbox[%d] is not a number", i)
			}
			parsed.Bbox[i] = n
		}
	}

	if props, ok := obj["properties"]; ok && !props.IsNull() {
		m, ok := props.AsObject()
		if !ok {
			return fmt.Errorf("stac: feature properties is a JSON %s, not an object", props.Kind())
		}
		parsed.Properties = m
	}

	*f = parsed
	return nil
}

// MarshalJSON implements custom marshaling to include foreign members.
func (f Feature) MarshalJSON() ([]byte, error) {
	out := map[string]Value{}
	if members, ok := f.Members.AsObject(); ok {
		for k, v := range members {
			out[k] = v
		}
	}
	typ := f.Type
	if typ == "" {
		typ = "Feature"
	}
	out["type"] = String(typ)
	if !f.ID.IsNull() {
		out["id"] = f.ID
	}
	if len(f.Bbox) > 0 {
		coords := make([]Value, len(f.Bbox))
		for i, c := range f.Bbox {
			coords[i] = Float(c)
		}
		out["bbox"] = Array(coords...)
	}
	out["geometry"] = f.Geometry
	out["properties"] = Object(f.Properties)
	return Object(out).MarshalJSON()
}

// DisplayID returns the feature id rendered as text. Only string and numeric
// ids are accepted.
func (f *Feature) DisplayID() (string, bool) {
	if f == nil {
		return "", false
	}
	switch f.ID.Kind() {
	case KindString:
		s, _ := f.ID.AsString()
		return s, true
	case KindNumber:
		n, _ := f.ID.AsNumber()
		return n.String(), true
	default:
		return "", false
	}
}

// Property returns a named property.
func (f *Feature) Property(name string) (Value, bool) {
	if f == nil {
		return Value{}, false
	}
	v, ok := f.Properties[name]
	return v, ok
}

// ProductHref returns assets.PRODUCT.href.
func (f *Feature) ProductHref() (string, bool) {
	if f == nil {
		return "", false
	}
	return ResolveString(productHrefPath, &f.Members)
}

// QuicklookHref returns assets.QUICKLOOK.href.
func (f *Feature) QuicklookHref() (string, bool) {
	if f == nil {
		return "", false
	}
	return ResolveString(quicklookHrefPath, &f.Members)
}

// FeatureCollection is a page of catalogue results.
type FeatureCollection struct {
	Type           string         `json:"type"`
	Features       []*Feature     `json:"features"`
	Links          []*gostac.Link `json:"links,omitempty"`
	NumberMatched  *int           `json:"numberMatched,omitempty"`
	NumberReturned *int           `json:"numberReturned,omitempty"`
}

// ParseFeatureCollection decodes a catalogue response body. The document must
// be an object with a "features" array; if "type" is present it must be
// "FeatureCollection".
func ParseFeatureCollection(data []byte) (*FeatureCollection, error) {
	var raw struct {
		Type           *string         `json:"type"`
		Features       json.RawMessage `json:"features"`
		Links          []*gostac.Link  `json:"links"`
		NumberMatched  *int            `json:"numberMatched"`
		NumberReturned *int            `json:"numberReturned"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Type != nil && *raw.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: type is %q", ErrNotFeatureCollection, *raw.Type)
	}
	if len(raw.Features) == 0 || string(raw.Features) == "null" {
		return nil, fmt.Errorf("%w: missing features", ErrNotFeatureCollection)
	}

	fc := &FeatureCollection{
		Type:           "FeatureCollection",
		Links:          raw.Links,
		NumberMatched:  raw.NumberMatched,
		NumberReturned: raw.NumberReturned,
	}
	if err := json.Unmarshal(raw.Features, &fc.Features); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFeatureCollection, err)
	}
	for i, f := range fc.Features {
		if f == nil {
			return nil, fmt.Errorf("%w: features[%d] is null", ErrNotFeatureCollection, i)
		}
	}
	return fc, nil
}

// FindLink returns the first link with the given rel.
func (fc *FeatureCollection) FindLink(rel string) *gostac.Link {
	if fc == nil {
		return nil
	}
	for _, l := range fc.Links {
		if l != nil && l.Rel == rel {
			return l
		}
	}
	return nil
}
