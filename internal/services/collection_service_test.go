package services

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptstack/internal/core/extract"
	"promptstack/internal/core/ingest"
	"promptstack/internal/core/scan"
	"promptstack/internal/core/settings"
	"promptstack/internal/core/store"
	"promptstack/internal/models"
)

func newTestService(t *testing.T) (*CollectionService, *settings.Store) {
	t.Helper()
	log := zap.NewNop()
	st := settings.Open(filepath.Join(t.TempDir(), "config.json"), log)
	col := store.NewCollection(log)
	eng := ingest.NewEngine(extract.New(log), 2, 0, log)
	return NewCollectionService(col, st, eng, scan.New(log), log), st
}

func waitIdle(t *testing.T, svc *CollectionService) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !svc.Progress().Running
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAddManualTouchesExistingSavedPrompt(t *testing.T) {
	svc, st := newTestService(t)
	st.AddOrUpdatePrompt("review this", "old note")
	before := st.Prompts()[0].Updated

	time.Sleep(1100 * time.Millisecond) // timestamp resolution is one second

	item, err := svc.AddManual("review this", "new note")
	require.NoError(t, err)
	require.Equal(t, models.KindManual, item.Kind)

	prompts := st.Prompts()
	require.Len(t, prompts, 1)
	require.Equal(t, "new note", prompts[0].Note)
	require.NotEqual(t, before, prompts[0].Updated)
}

func TestAddManualDoesNotCreateSavedPrompt(t *testing.T) {
	svc, st := newTestService(t)
	_, err := svc.AddManual("brand new text", "")
	require.NoError(t, err)
	require.Empty(t, st.Prompts())
	require.Len(t, svc.Items(), 1)
}

func TestAddManualRejectsEmptyText(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddManual("", "")
	require.Error(t, err)
}

func TestSubmitFilesEndToEnd(t *testing.T) {
	svc, st := newTestService(t)
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("content of "+name), 0o644))
		paths = append(paths, p)
	}

	require.NoError(t, svc.SubmitFiles(paths))
	waitIdle(t, svc)

	items := svc.Items()
	require.Len(t, items, 3)
	for _, it := range items {
		require.Equal(t, models.KindFile, it.Kind)
		require.Contains(t, it.File.Content, "content of")
	}

	// The batch result is persisted.
	require.Len(t, st.Items(), 3)

	p := svc.Progress()
	require.False(t, p.Running)
	require.Equal(t, 3, p.Done)
}

func TestSubmitFilesRejectsConcurrentBatch(t *testing.T) {
	svc, _ := newTestService(t)
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 20; i++ {
		p := filepath.Join(dir, filepath.Base(dir)+string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		paths = append(paths, p)
	}

	require.NoError(t, svc.SubmitFiles(paths))
	err := svc.SubmitFiles(paths)
	if err != nil {
		require.ErrorIs(t, err, ErrBusy)
	}
	waitIdle(t, svc)
}

func TestSubmitDirectoryProducesSingleItem(t *testing.T) {
	svc, _ := newTestService(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.md"), []byte("bravo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.png"), []byte("binary"), 0o644))

	require.NoError(t, svc.SubmitDirectory(root))
	waitIdle(t, svc)

	items := svc.Items()
	require.Len(t, items, 1)
	require.Equal(t, models.KindDirectory, items[0].Kind)
	require.Equal(t, root, items[0].Directory.RootPath)
	require.Len(t, items[0].Directory.Files, 2)
}

func TestSubmitDirectoryEmptyRoot(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.SubmitDirectory(t.TempDir()))
	waitIdle(t, svc)
	require.Empty(t, svc.Items())
}

func TestSubmitRemoteIDsUnconfigured(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SubmitRemoteIDs("20240101093000-abc123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not configured")
}

func TestSubmitRemoteIDsNoValidIDs(t *testing.T) {
	svc, st := newTestService(t)
	st.UpdateAPISettings("http://localhost:6806", "tok", 2)
	_, err := svc.SubmitRemoteIDs("nothing useful here")
	require.Error(t, err)
}

func TestSubmitRemoteIDsFetchAndPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code": 0, "data": {"hPath": "/Doc", "content": "remote body"}}`))
	}))
	defer srv.Close()

	svc, st := newTestService(t)
	st.UpdateAPISettings(srv.URL, "tok", 2)

	n, err := svc.SubmitRemoteIDs("20240101093000-abc123 and again 20240101093000-abc123")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	waitIdle(t, svc)

	items := svc.Items()
	require.Len(t, items, 1)
	require.Equal(t, models.KindRemoteDoc, items[0].Kind)
	require.Equal(t, "/Doc", items[0].Remote.Title)
	require.Equal(t, "remote body", items[0].Remote.Content)

	// A dead endpoint still yields an item, carrying a placeholder.
	srv.Close()
	n, err = svc.SubmitRemoteIDs("20250101093000-zzz999")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	waitIdle(t, svc)

	items = svc.Items()
	require.Len(t, items, 2)
	require.Equal(t, "unavailable", items[1].Remote.Title)
	require.True(t, extract.IsFailure(items[1].Remote.Content))
}

func TestReorderAndRemovePersist(t *testing.T) {
	svc, st := newTestService(t)
	a, err := svc.AddManual("a", "")
	require.NoError(t, err)
	b, err := svc.AddManual("b", "")
	require.NoError(t, err)

	require.True(t, svc.MoveToTop(b.ID))
	require.Equal(t, b.ID, svc.Items()[0].ID)
	require.Equal(t, b.ID, st.Items()[0].ID)

	require.Equal(t, 1, svc.Remove([]string{a.ID}))
	require.Len(t, st.Items(), 1)
}

func TestRestoreOnStartup(t *testing.T) {
	log := zap.NewNop()
	path := filepath.Join(t.TempDir(), "config.json")

	st := settings.Open(path, log)
	st.SaveItems([]models.DataItem{*models.NewManualItem("persisted")})

	col := store.NewCollection(log)
	eng := ingest.NewEngine(extract.New(log), 2, 0, log)
	svc := NewCollectionService(col, settings.Open(path, log), eng, scan.New(log), log)

	items := svc.Items()
	require.Len(t, items, 1)
	require.Equal(t, "persisted", items[0].Manual.Text)
}

func TestCancelWithoutBatch(t *testing.T) {
	svc, _ := newTestService(t)
	require.False(t, svc.Cancel())
}

func TestMergeThroughService(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddManual("hello", "")
	require.NoError(t, err)
	require.Contains(t, svc.Merge(), "[Manual prompt]\nhello")

	svc.Clear()
	require.Equal(t, "", svc.Merge())
}
