package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePartitionIdempotent(t *testing.T) {
	m := New()

	m.CreatePartition(1)
	ok, _ := m.Write(1, "x", 5)
	require.True(t, ok)

	// Second call must not wipe the partition.
	m.CreatePartition(1)
	v, found := m.Read(1, "x")
	require.True(t, found)
	assert.Equal(t, 5, v)
}

func TestReadMissing(t *testing.T) {
	m := New()
	m.CreatePartition(1)

	_, found := m.Read(1, "absent")
	assert.False(t, found)

	_, found = m.Read(9, "x")
	assert.False(t, found, "read from missing partition")
}

func TestWrite(t *testing.T) {
	m := New()
	m.CreatePartition(1)

	ok, prior := m.Write(1, "x", 10)
	assert.True(t, ok)
	assert.Nil(t, prior)

	ok, prior = m.Write(1, "x", 20)
	assert.True(t, ok)
	assert.Equal(t, 10, prior)

	ok, _ = m.Write(2, "x", 1)
	assert.False(t, ok, "write without a partition fails")
}

func TestList(t *testing.T) {
	m := New()
	m.CreatePartition(1)
	m.Write(1, "b", 2)
	m.Write(1, "a", 1)
	m.Write(1, "c.d", 3)

	assert.Equal(t, []string{"a", "b", "c.d"}, m.List(1))
	assert.Nil(t, m.List(5))
}

func TestPartitionsAreIsolated(t *testing.T) {
	m := New()
	m.CreatePartition(1)
	m.CreatePartition(2)

	m.Write(1, "x", "mine")
	_, found := m.Read(2, "x")
	assert.False(t, found)
}
