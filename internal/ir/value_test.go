package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePropertyType(t *testing.T) {
	for pt, name := range typeNames {
		if pt == TypeUndefined {
			continue
		}
		got, err := ParsePropertyType(name)
		require.NoError(t, err)
		assert.Equal(t, pt, got)
		assert.Equal(t, name, got.Name())
	}

	_, err := ParsePropertyType("Float")
	require.Error(t, err)
	assert.True(t, IsFormatError(err))
}

func TestPropertyTypeClassification(t *testing.T) {
	assert.True(t, TypeReference.IsReference())
	assert.True(t, TypeWeakReference.IsReference())
	assert.False(t, TypePath.IsReference())

	assert.True(t, TypeURI.IsText())
	assert.False(t, TypeLong.IsText())
	assert.False(t, PropertyType(99).Valid())
	assert.Equal(t, "PropertyType(99)", PropertyType(99).Name())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		typ  PropertyType
		text string
		want Value
	}{
		{"string", TypeString, "hello", StringValue("hello")},
		{"reference", TypeReference, "842e61c0-09ab-42a9-87c0-308ccc90e6f4", StringValue("842e61c0-09ab-42a9-87c0-308ccc90e6f4")},
		{"long", TypeLong, "-42", LongValue(-42)},
		{"double", TypeDouble, "3.25", DoubleValue(3.25)},
		{"boolean 1", TypeBoolean, "1", BooleanValue(true)},
		{"boolean false", TypeBoolean, "false", BooleanValue(false)},
		{"binary", TypeBinary, "abc", BinaryValue("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.typ, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue_Date(t *testing.T) {
	want := time.Date(2011, 4, 21, 14, 34, 20, 431_000_000, time.UTC)

	for _, text := range []string{
		"2011-04-21T14:34:20.431Z",
		"2011-04-21T16:34:20.431+02:00",
	} {
		got, err := ParseValue(TypeDate, text)
		require.NoError(t, err, text)
		d, ok := got.(DateValue)
		require.True(t, ok)
		assert.True(t, want.Equal(d.Time), "%s parsed as %s", text, d.Time)
	}

	got, err := ParseValue(TypeDate, "Thu, 21 Apr 2011 16:34:20 +0200")
	require.NoError(t, err)
	assert.Equal(t, "2011-04-21T14:34:20.000Z", got.String())
}

func TestParseValue_Decimal(t *testing.T) {
	got, err := ParseValue(TypeDecimal, "12.50")
	require.NoError(t, err)
	assert.Equal(t, "12.50", got.String())
}

func TestParseValue_Invalid(t *testing.T) {
	tests := []struct {
		typ  PropertyType
		text string
	}{
		{TypeLong, "x"},
		{TypeDouble, "1.2.3"},
		{TypeBoolean, "maybe"},
		{TypeDate, "yesterday"},
		{TypeDecimal, "ten"},
		{TypeUndefined, "x"},
	}

	for _, tt := range tests {
		_, err := ParseValue(tt.typ, tt.text)
		require.Error(t, err, "%s %q", tt.typ, tt.text)
		assert.True(t, IsFormatError(err))
	}
}

func TestNewDate_Truncates(t *testing.T) {
	in := time.Date(2020, 1, 2, 3, 4, 5, 678_901_234, time.FixedZone("x", 3600))
	d := NewDate(in)
	assert.Equal(t, "2020-01-02T02:04:05.678Z", d.String())
	assert.Equal(t, time.UTC, d.Time.Location())
}

func TestMultiNeverNil(t *testing.T) {
	p := Multi("tags", TypeString)
	assert.NotNil(t, p.Values)
	assert.True(t, p.Multiple)
	assert.Nil(t, p.Value())
}
