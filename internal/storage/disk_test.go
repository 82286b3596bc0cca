package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_Save(t *testing.T) {
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	ref, err := store.Save("My Holiday Photo.JPG", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, "_my-holiday-photo.jpg"), ref)
	assert.Len(t, strings.SplitN(ref, "_", 2)[0], 36)

	data, err := os.ReadFile(filepath.Join(store.Dir(), ref))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	require.NoError(t, store.Remove(ref))
	require.NoError(t, store.Remove(ref))
	_, err = os.Stat(filepath.Join(store.Dir(), ref))
	assert.True(t, os.IsNotExist(err))
}

func TestDiskStore_SaveEmpty(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("empty.png", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyUpload)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Sunset.png", "sunset.png"},
		{"two  words here.jpg", "two-words-here.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\pic.gif`, "pic.gif"},
		{"...", "image"},
		{"", "image"},
		{"ünïcode.jpg", "ncode.jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in), tt.in)
	}
}
