package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptstack/internal/models"
)

func configPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func readDoc(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestOpenCreatesAbsentFileWithDefaults(t *testing.T) {
	path := configPath(t)
	s := Open(path, zap.NewNop())

	doc := s.Document()
	require.Equal(t, DefaultTimeout, doc.Timeout)
	require.Empty(t, doc.APIBaseURL)
	require.Empty(t, doc.ManualPrompts)
	require.Empty(t, doc.ListItems)

	onDisk := readDoc(t, path)
	require.Contains(t, onDisk, "timeout")
	require.Contains(t, onDisk, "manual_prompts")
	require.Contains(t, onDisk, "list_items")
}

func TestOpenMalformedFileKeepsFileUntilSave(t *testing.T) {
	path := configPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := Open(path, zap.NewNop())
	require.Equal(t, DefaultTimeout, s.Document().Timeout)

	// The broken file stays untouched until an explicit save.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{not json", string(raw))

	s.UpdateAPISettings("http://localhost:6806", "tok", 5)
	onDisk := readDoc(t, path)
	require.JSONEq(t, `"http://localhost:6806"`, string(onDisk["api_base_url"]))
}

func TestSavePreservesUnrelatedKeys(t *testing.T) {
	path := configPath(t)
	seed := `{"theme": "dark", "window": {"w": 800}, "timeout": 3}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s := Open(path, zap.NewNop())
	require.Equal(t, 3, s.Document().Timeout)

	s.UpdateAPISettings("http://h", "t", 9)

	onDisk := readDoc(t, path)
	require.JSONEq(t, `"dark"`, string(onDisk["theme"]))
	require.JSONEq(t, `{"w": 800}`, string(onDisk["window"]))
	require.JSONEq(t, `9`, string(onDisk["timeout"]))
}

func TestUpdateAPISettingsClampsTimeout(t *testing.T) {
	s := Open(configPath(t), zap.NewNop())
	s.UpdateAPISettings("http://h", "t", 0)
	require.Equal(t, DefaultTimeout, s.Document().Timeout)
}

func TestAddOrUpdatePromptKeyedByText(t *testing.T) {
	s := Open(configPath(t), zap.NewNop())

	s.AddOrUpdatePrompt("review this diff", "first note")
	s.AddOrUpdatePrompt("summarize", "")
	s.AddOrUpdatePrompt("review this diff", "second note")

	prompts := s.Prompts()
	require.Len(t, prompts, 2)
	require.Equal(t, "review this diff", prompts[0].Text)
	require.Equal(t, "second note", prompts[0].Note)
	require.NotEmpty(t, prompts[0].Created)
	require.NotEmpty(t, prompts[0].Updated)
	require.Equal(t, "summarize", prompts[1].Text)
}

func TestAddOrUpdatePromptIgnoresEmptyText(t *testing.T) {
	s := Open(configPath(t), zap.NewNop())
	s.AddOrUpdatePrompt("", "note")
	require.Empty(t, s.Prompts())
}

func TestTouchPromptNeverCreates(t *testing.T) {
	s := Open(configPath(t), zap.NewNop())

	require.False(t, s.TouchPrompt("unknown", ""))
	require.Empty(t, s.Prompts())

	s.AddOrUpdatePrompt("known", "keep")
	require.True(t, s.TouchPrompt("known", ""))
	prompts := s.Prompts()
	require.Len(t, prompts, 1)
	// An empty note on touch leaves the stored note alone.
	require.Equal(t, "keep", prompts[0].Note)

	require.True(t, s.TouchPrompt("known", "replaced"))
	require.Equal(t, "replaced", s.Prompts()[0].Note)
}

func TestDeletePrompt(t *testing.T) {
	s := Open(configPath(t), zap.NewNop())
	s.AddOrUpdatePrompt("a", "")
	s.AddOrUpdatePrompt("b", "")

	s.DeletePrompt("a")
	prompts := s.Prompts()
	require.Len(t, prompts, 1)
	require.Equal(t, "b", prompts[0].Text)
}

func TestItemsRoundTripAcrossReopen(t *testing.T) {
	path := configPath(t)
	s := Open(path, zap.NewNop())

	items := []models.DataItem{
		*models.NewManualItem("hello"),
		*models.NewFileItem(models.FileEntry{SourcePath: "/tmp/a.txt", Content: "x", SizeBytes: 1, DisplayName: "a.txt"}),
	}
	s.SaveItems(items)

	reopened := Open(path, zap.NewNop())
	got := reopened.Items()
	require.Len(t, got, 2)
	require.Equal(t, items[0].ID, got[0].ID)
	require.Equal(t, "hello", got[0].Manual.Text)
	require.Equal(t, "a.txt", got[1].File.DisplayName)
}
