// Package codec serializes a node's properties into the opaque payload
// stored on the node row.
//
// The payload is a JSON document:
//
//	{"properties":[{"name":"title","type":"String","multiple":false,"values":["Hello"]}]}
//
// Every property records its type name and multiplicity. Binary values are
// not embedded: the payload carries each value's byte length and Encode
// returns the bytes separately so the caller can hand them to the binary
// store. Properties appear in the order they were given.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/damz/jackalope/internal/ir"
)

// EmptyPayload is the payload of a node without properties.
var EmptyPayload = []byte(`{"properties":[]}`)

// Filter selects the properties Decode materializes. A nil Filter selects all.
type Filter func(name string) bool

// Encoded is the result of encoding a property set.
type Encoded struct {
	// Payload is the serialized document stored on the node row.
	Payload []byte

	// Binaries maps a Binary property name to its values in index order.
	// Only properties that carried bytes appear here.
	Binaries map[string][][]byte
}

type document struct {
	Properties []wireProperty `json:"properties"`
}

type wireProperty struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Multiple bool   `json:"multiple"`
	Values   []any  `json:"values"`
}

type wireDocument struct {
	Properties []struct {
		Name     string            `json:"name"`
		Type     string            `json:"type"`
		Multiple bool              `json:"multiple"`
		Values   []json.RawMessage `json:"values"`
	} `json:"properties"`
}

// Encode serializes props. It fails with a FORMAT_ERROR when a value does
// not fit its property's type or a single-valued property does not carry
// exactly one value.
func Encode(props []ir.Property) (Encoded, error) {
	doc := document{Properties: make([]wireProperty, 0, len(props))}
	binaries := make(map[string][][]byte)

	for _, p := range props {
		if !p.Type.Valid() || p.Type == ir.TypeUndefined {
			return Encoded{}, ir.NewFormatError("", fmt.Sprintf("property %s: invalid type %d", p.Name, int(p.Type)))
		}
		if !p.Multiple && len(p.Values) != 1 {
			return Encoded{}, ir.NewFormatError("", fmt.Sprintf("property %s: single-valued property has %d values", p.Name, len(p.Values)))
		}

		wp := wireProperty{
			Name:     p.Name,
			Type:     p.Type.Name(),
			Multiple: p.Multiple,
			Values:   make([]any, 0, len(p.Values)),
		}
		var blobs [][]byte
		for _, v := range p.Values {
			wv, blob, err := wireValue(p.Type, v)
			if err != nil {
				return Encoded{}, fmt.Errorf("encode property %s: %w", p.Name, err)
			}
			wp.Values = append(wp.Values, wv)
			if blob != nil {
				blobs = append(blobs, blob)
			}
		}
		if len(blobs) > 0 {
			if len(blobs) != len(p.Values) {
				return Encoded{}, ir.NewFormatError("", fmt.Sprintf("property %s: cannot mix binary content and lengths", p.Name))
			}
			binaries[p.Name] = blobs
		}
		doc.Properties = append(doc.Properties, wp)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return Encoded{}, fmt.Errorf("encode payload: %w", err)
	}

	return Encoded{
		Payload:  bytes.TrimSuffix(buf.Bytes(), []byte("\n")),
		Binaries: binaries,
	}, nil
}

// wireValue returns the JSON value for v and, for binary content, the bytes
// to store out of band.
func wireValue(t ir.PropertyType, v ir.Value) (any, []byte, error) {
	mismatch := func() error {
		return ir.NewFormatError("", fmt.Sprintf("value of kind %T is not valid for type %s", v, t))
	}

	switch t {
	case ir.TypeBinary:
		switch bv := v.(type) {
		case ir.BinaryValue:
			b := []byte(bv)
			if b == nil {
				b = []byte{}
			}
			return len(b), b, nil
		case ir.LongValue:
			return int64(bv), nil, nil
		}
		return nil, nil, mismatch()
	case ir.TypeLong:
		if lv, ok := v.(ir.LongValue); ok {
			return int64(lv), nil, nil
		}
		return nil, nil, mismatch()
	case ir.TypeDouble:
		if dv, ok := v.(ir.DoubleValue); ok {
			return strconv.FormatFloat(float64(dv), 'g', -1, 64), nil, nil
		}
		return nil, nil, mismatch()
	case ir.TypeBoolean:
		if bv, ok := v.(ir.BooleanValue); ok {
			if bv {
				return "1", nil, nil
			}
			return "0", nil, nil
		}
		return nil, nil, mismatch()
	case ir.TypeDate:
		if dv, ok := v.(ir.DateValue); ok {
			return dv.String(), nil, nil
		}
		return nil, nil, mismatch()
	case ir.TypeDecimal:
		if dv, ok := v.(ir.DecimalValue); ok {
			return dv.String(), nil, nil
		}
		return nil, nil, mismatch()
	}

	if sv, ok := v.(ir.StringValue); ok && t.IsText() {
		return string(sv), nil, nil
	}
	return nil, nil, mismatch()
}

// Decode reconstructs the properties of a payload. Only properties accepted
// by filter are materialized. Binary values decode to their byte length.
func Decode(payload []byte, filter Filter) ([]ir.Property, error) {
	var doc wireDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, ir.NewFormatError("", fmt.Sprintf("malformed payload: %v", err))
	}

	props := make([]ir.Property, 0, len(doc.Properties))
	for _, wp := range doc.Properties {
		if filter != nil && !filter(wp.Name) {
			continue
		}
		t, err := ir.ParsePropertyType(wp.Type)
		if err != nil {
			return nil, fmt.Errorf("decode property %s: %w", wp.Name, err)
		}

		p := ir.Property{
			Name:     wp.Name,
			Type:     t,
			Multiple: wp.Multiple,
			Values:   make([]ir.Value, 0, len(wp.Values)),
		}
		for _, raw := range wp.Values {
			v, err := decodeValue(t, raw)
			if err != nil {
				return nil, fmt.Errorf("decode property %s: %w", wp.Name, err)
			}
			p.Values = append(p.Values, v)
		}
		props = append(props, p)
	}
	return props, nil
}

func decodeValue(t ir.PropertyType, raw json.RawMessage) (ir.Value, error) {
	if t == ir.TypeLong || t == ir.TypeBinary {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, ir.NewFormatError("", fmt.Sprintf("malformed %s value %s", t, raw))
		}
		i, err := n.Int64()
		if err != nil {
			return nil, ir.NewFormatError("", fmt.Sprintf("malformed %s value %s", t, raw))
		}
		return ir.LongValue(i), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, ir.NewFormatError("", fmt.Sprintf("malformed %s value %s", t, raw))
	}
	return ir.ParseValue(t, s)
}
