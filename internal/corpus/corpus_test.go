package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}

func TestScanFiltersAndOrders(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "docs_a")
	b := filepath.Join(root, "docs_b")

	// Written out of order on purpose; the scan must sort by timestamp.
	writeFile(t, filepath.Join(b, "1000000050_later.md"), []byte("world"))
	writeFile(t, filepath.Join(a, "1000000000_first.md"), []byte("hello"))
	writeFile(t, filepath.Join(a, "nested", "1000000025_mid.md"), []byte("mid"))

	// None of these match the pattern.
	writeFile(t, filepath.Join(a, "notes.md"), []byte("no prefix"))
	writeFile(t, filepath.Join(a, "123_short.md"), []byte("nine digits missing"))
	writeFile(t, filepath.Join(a, "1000000000_.md"), []byte("empty suffix"))
	writeFile(t, filepath.Join(a, "1000000000_data.txt"), []byte("wrong extension"))

	docs := Scan(root, []string{a, b})
	require.Len(t, docs, 3)
	assert.Equal(t, "1000000000_first.md", docs[0].Name)
	assert.Equal(t, "1000000025_mid.md", docs[1].Name)
	assert.Equal(t, "1000000050_later.md", docs[2].Name)
	assert.Equal(t, int64(1000000000), docs[0].Timestamp)
	assert.Equal(t, "docs_a/1000000000_first.md", docs[0].RelPath)
	assert.Equal(t, "hello", docs[0].RawText)
}

func TestScanTieBreaksOnPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "zzz", "1000000000_tie.md"), []byte("z"))
	writeFile(t, filepath.Join(root, "aaa", "1000000000_tie.md"), []byte("a"))

	docs := Scan(root, []string{filepath.Join(root, "zzz"), filepath.Join(root, "aaa")})
	require.Len(t, docs, 2)
	assert.Equal(t, "aaa/1000000000_tie.md", docs[0].RelPath)
	assert.Equal(t, "zzz/1000000000_tie.md", docs[1].RelPath)
}

func TestScanDeterministicAcrossDirOrder(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	writeFile(t, filepath.Join(a, "1000000010_one.md"), []byte("1"))
	writeFile(t, filepath.Join(b, "1000000020_two.md"), []byte("2"))
	writeFile(t, filepath.Join(a, "1000000030_three.md"), []byte("3"))

	forward := Scan(root, []string{a, b})
	reversed := Scan(root, []string{b, a})
	assert.Equal(t, forward, reversed)
}

func TestScanLossyDecode(t *testing.T) {
	root := t.TempDir()
	// 0xff 0xfe is not valid UTF-8; the scan must not drop the file.
	writeFile(t, filepath.Join(root, "1000000000_bad.md"), []byte{'o', 'k', 0xff, 0xfe, '!'})

	docs := Scan(root, []string{root})
	require.Len(t, docs, 1)
	assert.True(t, strings.Contains(docs[0].RawText, "ok"))
	assert.True(t, strings.Contains(docs[0].RawText, "�"))
}

func TestScanEmptyAndMissing(t *testing.T) {
	root := t.TempDir()
	assert.Empty(t, Scan(root, nil))
	assert.Empty(t, Scan(root, []string{filepath.Join(root, "does-not-exist")}))
}

func TestResolveSourceDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "notes"), 0755))

	resolved := ResolveSourceDirs(root, []string{"src/notes", "missing/dir"})
	require.Len(t, resolved, 1)
	assert.Equal(t, filepath.Join(root, "src", "notes"), resolved[0])
}

func TestDocumentTime(t *testing.T) {
	d := Document{Timestamp: 1000000000}
	assert.Equal(t, "2001-09-09T01:46:40Z", d.Time().Format("2006-01-02T15:04:05Z07:00"))
}
