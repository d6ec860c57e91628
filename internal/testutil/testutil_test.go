package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIdentifiers(t *testing.T) {
	gen := NewSequentialIdentifiers()

	first := gen.NewIdentifier()
	assert.Equal(t, "00000000-0000-4000-8000-000000000001", first)
	assert.Equal(t, Identifier(2), gen.NewIdentifier())

	u, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, first, u.String())
}

func TestClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())
}
