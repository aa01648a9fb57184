package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nthconn/rsyncgo/collab"
)

func TestWalkOrdersDirsBeforeChildrenAndSortsSiblings(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "z.txt"), []byte("z"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "m.txt"), []byte("m"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("t"), 0o644))

	var paths []string
	w := &Walker{}
	require.NoError(t, w.Walk(root, func(e collab.Entry) error {
		paths = append(paths, e.Path)
		return nil
	}))

	require.Equal(t, []string{"", "a", "a/m.txt", "a/z.txt", "b", "top.txt"}, paths)
}

func TestBasisOpenerMissingFileReturnsNilNil(t *testing.T) {
	root := t.TempDir()
	var opener BasisOpener
	b, err := opener.Open(filepath.Join(root, "nope"))
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestBasisOpenerReadsExistingFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "basis")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	var opener BasisOpener
	b, err := opener.Open(path)
	require.NoError(t, err)
	require.NotNil(t, b)
	defer b.Close()

	require.Equal(t, int64(11), b.Size())
	buf := make([]byte, 5)
	n, err := b.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, "world", string(buf[:n]))
}

func TestOutputOpenerCommitRenamesIntoPlace(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "out.txt")

	var opener OutputOpener
	of, err := opener.Create(dest, "")
	require.NoError(t, err)

	_, err = of.WriteAt([]byte("payload"), 0)
	require.NoError(t, err)
	require.NoError(t, of.Commit(dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestOutputOpenerDiscardRemovesTempFile(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "out.txt")

	var opener OutputOpener
	of, err := opener.Create(dest, "")
	require.NoError(t, err)
	require.NoError(t, of.Discard())

	_, err = os.Stat(dest)
	require.True(t, os.IsNotExist(err))
}

func TestOutputOpenerUsesPartialDir(t *testing.T) {
	root := t.TempDir()
	partial := filepath.Join(root, ".partial")
	dest := filepath.Join(root, "out.txt")

	var opener OutputOpener
	of, err := opener.Create(dest, partial)
	require.NoError(t, err)
	require.NoError(t, of.Discard())

	entries, err := os.ReadDir(partial)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMetadataApplierAppliesModeAndTimes(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	var applier MetadataApplier
	require.NoError(t, applier.Apply(path, collab.MetadataSpec{
		Mode:    0o600,
		SetMode: true,
	}))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}
