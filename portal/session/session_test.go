package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certdesk/core/user"
)

type brokenStorage struct{}

func (brokenStorage) GetItem(string) (string, bool, error) { return "", false, errors.New("disk on fire") }
func (brokenStorage) SetItem(string, string) error         { return errors.New("disk on fire") }
func (brokenStorage) RemoveItem(string) error              { return errors.New("disk on fire") }

func TestStore_SetGetClear(t *testing.T) {
	storage := NewMemoryStorage()
	store := NewStore(storage)

	assert.Nil(t, store.Get())

	require.NoError(t, store.Set(user.RoleStudent, "STU001"))
	assert.Equal(t, &Session{Role: user.RoleStudent, ID: "STU001"}, store.Get())

	raw, ok, err := storage.GetItem(StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"user":{"role":"student","id":"STU001"}}`, raw)

	// overwrites
	require.NoError(t, store.Set(user.RoleOrganizer, "ORG001"))
	assert.Equal(t, &Session{Role: user.RoleOrganizer, ID: "ORG001"}, store.Get())

	require.NoError(t, store.Clear())
	assert.Nil(t, store.Get())
}

func TestStore_Get_malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *Session
	}{
		{name: "not JSON", raw: "lol"},
		{name: "no user", raw: `{"role":"student","id":"STU001"}`},
		{name: "null user", raw: `{"user":null}`},
		{name: "missing id", raw: `{"user":{"role":"student"}}`},
		{name: "wrong types", raw: `{"user":{"role":1,"id":2}}`},
		{name: "unknown role is kept", raw: `{"user":{"role":"janitor","id":"X1"}}`, want: &Session{Role: "janitor", ID: "X1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMemoryStorage()
			require.NoError(t, storage.SetItem(StorageKey, tt.raw))
			assert.Equal(t, tt.want, NewStore(storage).Get())
		})
	}
}

func TestStore_brokenStorage(t *testing.T) {
	store := NewStore(brokenStorage{})
	assert.Nil(t, store.Get())
	assert.Error(t, store.Set(user.RoleAdmin, "ADM001"))
	assert.Error(t, store.Clear())
}

func TestBoltStorage_persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")

	storage, err := OpenBoltStorage(path)
	require.NoError(t, err)
	require.NoError(t, NewStore(storage).Set(user.RoleTeacher, "FAC001"))
	require.NoError(t, storage.Close())

	// "page reload"
	storage, err = OpenBoltStorage(path)
	require.NoError(t, err)
	defer storage.Close()

	store := NewStore(storage)
	assert.Equal(t, &Session{Role: user.RoleTeacher, ID: "FAC001"}, store.Get())

	require.NoError(t, store.Clear())
	_, ok, err := storage.GetItem(StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}
