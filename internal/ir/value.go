package ir

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// DateLayout is the canonical text form of a Date value. Dates are stored in
// UTC with millisecond precision so that text comparison orders them.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Value is a sealed interface over the property value types.
type Value interface {
	fmt.Stringer
	propertyValue()
}

// StringValue carries String, Name, Path, URI, Reference and WeakReference
// values.
type StringValue string

func (StringValue) propertyValue() {}

func (v StringValue) String() string { return string(v) }

// LongValue is a 64-bit signed integer. Decoded Binary values are reported
// as their byte length in a LongValue.
type LongValue int64

func (LongValue) propertyValue() {}

func (v LongValue) String() string { return strconv.FormatInt(int64(v), 10) }

// DoubleValue is a 64-bit float.
type DoubleValue float64

func (DoubleValue) propertyValue() {}

func (v DoubleValue) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

// BooleanValue is a boolean.
type BooleanValue bool

func (BooleanValue) propertyValue() {}

func (v BooleanValue) String() string { return strconv.FormatBool(bool(v)) }

// DateValue is a point in time.
type DateValue struct {
	Time time.Time
}

func (DateValue) propertyValue() {}

func (v DateValue) String() string { return v.Time.UTC().Format(DateLayout) }

// NewDate returns a DateValue truncated to the stored precision.
func NewDate(t time.Time) DateValue {
	return DateValue{Time: t.UTC().Truncate(time.Millisecond)}
}

// DecimalValue is an arbitrary precision decimal.
type DecimalValue struct {
	Decimal *apd.Decimal
}

func (DecimalValue) propertyValue() {}

func (v DecimalValue) String() string {
	if v.Decimal == nil {
		return "0"
	}
	return v.Decimal.String()
}

// NewDecimal parses a decimal from its text form.
func NewDecimal(s string) (DecimalValue, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return DecimalValue{}, NewFormatError("", fmt.Sprintf("invalid decimal %q", s))
	}
	return DecimalValue{Decimal: d}, nil
}

// BinaryValue is raw binary content.
type BinaryValue []byte

func (BinaryValue) propertyValue() {}

func (v BinaryValue) String() string { return string(v) }

// ParseValue converts the text form of a value into a Value of type t.
// Dates accept the canonical layout, RFC 3339 and RFC 1123 with numeric zone.
func ParseValue(t PropertyType, text string) (Value, error) {
	switch {
	case t.IsText():
		return StringValue(text), nil
	}
	switch t {
	case TypeLong:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, NewFormatError("", fmt.Sprintf("invalid long %q", text))
		}
		return LongValue(n), nil
	case TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, NewFormatError("", fmt.Sprintf("invalid double %q", text))
		}
		return DoubleValue(f), nil
	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "1", "true":
			return BooleanValue(true), nil
		case "0", "false", "":
			return BooleanValue(false), nil
		}
		return nil, NewFormatError("", fmt.Sprintf("invalid boolean %q", text))
	case TypeDate:
		for _, layout := range []string{DateLayout, time.RFC3339Nano, time.RFC1123Z} {
			if ts, err := time.Parse(layout, text); err == nil {
				return NewDate(ts), nil
			}
		}
		return nil, NewFormatError("", fmt.Sprintf("invalid date %q", text))
	case TypeDecimal:
		return NewDecimal(text)
	case TypeBinary:
		return BinaryValue(text), nil
	}
	return nil, NewFormatError("", fmt.Sprintf("cannot parse value of type %s", t))
}
