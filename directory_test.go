package memvfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryTableInsertionOrder(t *testing.T) {
	table := newDirectoryTable(0)
	require.NoError(t, table.put("c", 1, false))
	require.NoError(t, table.put("a", 2, false))
	require.NoError(t, table.put("b", 3, false))

	assert.Equal(t, []DirEntry{{"c", 1}, {"a", 2}, {"b", 3}}, table.Snapshot())
	assert.Equal(t, 3, table.Len())
}

func TestDirectoryTablePut(t *testing.T) {
	table := newDirectoryTable(0)
	require.NoError(t, table.put("a", 1, false))

	err := table.put("a", 2, false)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	key, ok := table.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), key)
}

func TestDirectoryTableReplaceKeepsPosition(t *testing.T) {
	table := newDirectoryTable(0)
	require.NoError(t, table.put("a", 1, false))
	require.NoError(t, table.put("b", 2, false))
	require.NoError(t, table.put("a", 9, true))

	assert.Equal(t, []DirEntry{{"a", 9}, {"b", 2}}, table.Snapshot())
}

func TestDirectoryTableRemove(t *testing.T) {
	table := newDirectoryTable(0)
	require.NoError(t, table.put("a", 1, false))
	require.NoError(t, table.put("b", 2, false))

	key, ok := table.remove("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), key)
	assert.Equal(t, []DirEntry{{"b", 2}}, table.Snapshot())

	_, ok = table.remove("a")
	assert.False(t, ok)

	// Reinsertion enumerates at the end.
	require.NoError(t, table.put("a", 3, false))
	assert.Equal(t, []DirEntry{{"b", 2}, {"a", 3}}, table.Snapshot())
}

func TestDirectoryTableSnapshotIsCopy(t *testing.T) {
	table := newDirectoryTable(0)
	require.NoError(t, table.put("a", 1, false))
	snapshot := table.Snapshot()

	require.NoError(t, table.put("b", 2, false))
	table.remove("a")

	assert.Equal(t, []DirEntry{{"a", 1}}, snapshot)
}

func TestDirectoryTableParent(t *testing.T) {
	table := newDirectoryTable(7)
	assert.Equal(t, int64(7), table.Parent())
	table.setParent(9)
	assert.Equal(t, int64(9), table.Parent())
}
