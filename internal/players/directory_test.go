package players

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlayer(t *testing.T) {
	host, err := NewPlayer("  Ada Lovelace ", true)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", host.Name)
	assert.NotEqual(t, uuid.Nil, host.ID)
	assert.Contains(t, host.Avatar, "name=Ada+Lovelace")
	assert.Contains(t, host.Avatar, "background=333")

	guest, err := NewPlayer("Bob", false)
	require.NoError(t, err)
	assert.Contains(t, guest.Avatar, "background=666")
	assert.NotEqual(t, host.ID, guest.ID)
}

func TestNewPlayerRejectsBadNames(t *testing.T) {
	_, err := NewPlayer("   ", false)
	assert.Error(t, err)

	_, err = NewPlayer(strings.Repeat("x", MaxNameLength+1), false)
	assert.Error(t, err)
}

func TestDirectoryAddGetRemove(t *testing.T) {
	d := NewDirectory()
	p, _ := NewPlayer("Cleo", false)
	p.SessionCode = "OTTER"

	d.Add(p)
	got, ok := d.Get(p.ID)
	require.True(t, ok)
	assert.Same(t, p, got)

	d.Remove(p.ID)
	d.Remove(p.ID)
	_, ok = d.Get(p.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, d.Len())
}

func TestDirectoryRemoveSession(t *testing.T) {
	d := NewDirectory()
	for i, code := range []string{"OTTER", "OTTER", "PANDA"} {
		p, _ := NewPlayer(string(rune('A'+i)), false)
		p.SessionCode = code
		d.Add(p)
	}

	assert.Equal(t, 2, d.RemoveSession("OTTER"))
	assert.Equal(t, 1, d.Len())
}
