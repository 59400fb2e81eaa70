package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackendsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	level, err := NewLevelDB(filepath.Join(dir, "leveldb"))
	require.NoError(t, err)
	boltDB, err := NewBoltDB(filepath.Join(dir, "state.db"))
	require.NoError(t, err)

	backends := map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    boltDB,
	}

	for name, db := range backends {
		t.Run(name, func(t *testing.T) {
			key := []byte("auction/next")
			_, err := db.Get(key)
			require.ErrorIs(t, err, ErrNotFound)

			ok, err := db.Has(key)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, db.Put(key, []byte{0x01}))
			value, err := db.Get(key)
			require.NoError(t, err)
			require.Equal(t, []byte{0x01}, value)

			ok, err = db.Has(key)
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, db.Delete(key))
			ok, err = db.Has(key)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}

	require.NoError(t, level.Close())
	require.NoError(t, boltDB.Close())
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte{0x01, 0x02}
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 0xff

	stored, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, stored)
}
