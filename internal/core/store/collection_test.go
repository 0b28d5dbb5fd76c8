package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptstack/internal/models"
)

func newTestCollection() *Collection {
	return NewCollection(zap.NewNop())
}

func fileItem(name, content string) *models.DataItem {
	return models.NewFileItem(models.FileEntry{
		SourcePath:  "/tmp/" + name,
		Content:     content,
		SizeBytes:   int64(len(content)),
		DisplayName: name,
	})
}

func TestMergeThreeBlocksTwoDividers(t *testing.T) {
	c := newTestCollection()
	c.Append(models.NewManualItem("hello"))
	c.Append(fileItem("b.txt", "world"))
	c.Append(fileItem("c.txt", ""))

	merged := c.Merge()

	divider := strings.Repeat("-", 80)
	require.Equal(t, 2, strings.Count(merged, divider))
	require.Contains(t, merged, "[Manual prompt]\nhello")
	require.Contains(t, merged, "[b.txt]\nworld")
	// Empty content still contributes a labeled block.
	require.Contains(t, merged, "[c.txt (empty)]")
	// No trailing divider after the last block.
	require.False(t, strings.HasSuffix(strings.TrimRight(merged, "\n"), divider))
}

func TestMergeIsIdempotent(t *testing.T) {
	c := newTestCollection()
	c.Append(models.NewManualItem("alpha"))
	c.Append(models.NewRemoteItem("20250101120000-abc123", "Title", "body"))
	c.Append(models.NewDirectoryItem("/src", []models.FileEntry{
		{SourcePath: "/src/a.go", Content: "package a"},
		{SourcePath: "/src/b.go", Content: ""},
	}))

	first := c.Merge()
	second := c.Merge()
	require.Equal(t, first, second)
}

func TestMergeDirectorySubHeaders(t *testing.T) {
	c := newTestCollection()
	c.Append(models.NewDirectoryItem("/src", []models.FileEntry{
		{SourcePath: "/src/a.go", Content: "package a"},
		{SourcePath: "/src/b.go", Content: ""},
	}))

	merged := c.Merge()
	require.Contains(t, merged, "[Directory: /src (2 files)]")
	require.Contains(t, merged, "  |- a.go\npackage a")
	require.Contains(t, merged, "  |- b.go (empty)")
}

func TestMergeEmptyManual(t *testing.T) {
	c := newTestCollection()
	c.Append(models.NewManualItem("   "))
	require.Contains(t, c.Merge(), "[Manual prompt (empty)]")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	c := newTestCollection()
	c.Append(models.NewManualItem("hello"))
	c.Append(fileItem("a.txt", "content"))
	c.Append(models.NewRemoteItem("20250101120000-abc123", "Doc", "body"))
	c.Append(models.NewDirectoryItem("/src", []models.FileEntry{{SourcePath: "/src/x.md", Content: "x"}}))

	snap := c.Snapshot()

	restored := newTestCollection()
	require.Equal(t, 4, restored.Restore(snap))
	require.Equal(t, c.Items(), restored.Items())

	// Restore assigns no new ids.
	for i, it := range restored.Items() {
		require.Equal(t, snap[i].ID, it.ID)
	}
}

func TestRestoreSkipsMalformedRecords(t *testing.T) {
	good := *models.NewManualItem("keep me")
	malformed := models.DataItem{ID: "x", Kind: models.KindFile} // payload missing
	unknown := models.DataItem{ID: "y", Kind: "mystery"}
	noID := models.DataItem{Kind: models.KindManual, Manual: &models.ManualPayload{Text: "t"}}
	dup := good

	c := newTestCollection()
	n := c.Restore([]models.DataItem{good, malformed, unknown, noID, dup})
	require.Equal(t, 1, n)
	require.Equal(t, 1, c.Len())
	require.Equal(t, good.ID, c.Items()[0].ID)
}

func TestRemovePreservesOrder(t *testing.T) {
	c := newTestCollection()
	a := models.NewManualItem("a")
	b := models.NewManualItem("b")
	d := models.NewManualItem("d")
	c.Append(a)
	c.Append(b)
	c.Append(d)

	require.Equal(t, 1, c.Remove([]string{b.ID, "not-there"}))

	items := c.Items()
	require.Len(t, items, 2)
	require.Equal(t, a.ID, items[0].ID)
	require.Equal(t, d.ID, items[1].ID)
}

func TestMoveOperations(t *testing.T) {
	c := newTestCollection()
	a := models.NewManualItem("a")
	b := models.NewManualItem("b")
	d := models.NewManualItem("d")
	c.Append(a)
	c.Append(b)
	c.Append(d)

	require.True(t, c.MoveToTop(d.ID))
	require.Equal(t, d.ID, c.Items()[0].ID)

	require.True(t, c.MoveToBottom(d.ID))
	require.Equal(t, d.ID, c.Items()[2].ID)

	require.True(t, c.MoveToIndex(d.ID, 1))
	require.Equal(t, []string{a.ID, d.ID, b.ID}, itemIDs(c))

	// Out-of-range indexes clamp.
	require.True(t, c.MoveToIndex(a.ID, 99))
	require.Equal(t, a.ID, c.Items()[2].ID)

	require.False(t, c.MoveToIndex("missing", 0))
}

func TestDuplicateContentSingleAndMulti(t *testing.T) {
	c := newTestCollection()
	a := models.NewManualItem("alpha")
	b := fileItem("b.txt", "bravo")
	empty := fileItem("e.txt", "")
	c.Append(a)
	c.Append(b)
	c.Append(empty)

	require.Equal(t, "alpha", c.DuplicateContent([]string{a.ID}))

	multi := c.DuplicateContent([]string{a.ID, b.ID})
	require.Contains(t, multi, "alpha")
	require.Contains(t, multi, "bravo")
	require.Contains(t, multi, "Manual prompt")
	require.Equal(t, 1, strings.Count(multi, strings.Repeat("-", 80)))

	// An empty item contributes no block, but the selection still counts two
	// items, so the surviving block keeps its header.
	require.Equal(t, "[Manual prompt: alpha]\nalpha\n", c.DuplicateContent([]string{a.ID, empty.ID}))
}

func TestClear(t *testing.T) {
	c := newTestCollection()
	c.Append(models.NewManualItem("a"))
	c.Clear()
	require.Zero(t, c.Len())
	require.Equal(t, "", c.Merge())
}

func itemIDs(c *Collection) []string {
	items := c.Items()
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
