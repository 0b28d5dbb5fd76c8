package models

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ItemKind discriminates the closed set of collection entry variants.
type ItemKind string

const (
	KindManual    ItemKind = "manual"
	KindFile      ItemKind = "file"
	KindRemoteDoc ItemKind = "remote_doc"
	KindDirectory ItemKind = "directory"
)

// FileEntry is one extracted file: either a standalone file item's payload or
// one member of a directory item. Content is write-once after extraction; a
// failed extraction stores a diagnostic placeholder, never an empty field.
type FileEntry struct {
	SourcePath  string `json:"source_path"`
	Content     string `json:"content"`
	SizeBytes   int64  `json:"size_bytes"`
	DisplayName string `json:"display_name"`
}

// ManualPayload carries user-entered prompt text.
type ManualPayload struct {
	Text string `json:"text"`
}

// RemotePayload carries a document fetched from the remote note service.
type RemotePayload struct {
	RemoteID string `json:"remote_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// DirectoryPayload carries the ordered extraction results of a scanned tree.
type DirectoryPayload struct {
	RootPath string      `json:"root_path"`
	Files    []FileEntry `json:"files"`
}

// DataItem is one entry of the ordered collection. Exactly one payload
// pointer is set, matching Kind. ID is assigned at creation and preserved
// across snapshot/restore.
type DataItem struct {
	ID        string            `json:"id"`
	Kind      ItemKind          `json:"kind"`
	Manual    *ManualPayload    `json:"manual,omitempty"`
	File      *FileEntry        `json:"file,omitempty"`
	Remote    *RemotePayload    `json:"remote_doc,omitempty"`
	Directory *DirectoryPayload `json:"directory,omitempty"`
}

func NewManualItem(text string) *DataItem {
	return &DataItem{ID: uuid.NewString(), Kind: KindManual, Manual: &ManualPayload{Text: text}}
}

func NewFileItem(entry FileEntry) *DataItem {
	return &DataItem{ID: uuid.NewString(), Kind: KindFile, File: &entry}
}

func NewRemoteItem(remoteID, title, content string) *DataItem {
	return &DataItem{ID: uuid.NewString(), Kind: KindRemoteDoc, Remote: &RemotePayload{RemoteID: remoteID, Title: title, Content: content}}
}

func NewDirectoryItem(root string, files []FileEntry) *DataItem {
	return &DataItem{ID: uuid.NewString(), Kind: KindDirectory, Directory: &DirectoryPayload{RootPath: root, Files: files}}
}

// Validate reports whether the item is well formed: a non-empty id and the
// payload pointer matching its kind. Restore uses this to skip malformed
// persisted records individually.
func (it *DataItem) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item missing id")
	}
	switch it.Kind {
	case KindManual:
		if it.Manual == nil {
			return fmt.Errorf("manual item %s missing payload", it.ID)
		}
	case KindFile:
		if it.File == nil {
			return fmt.Errorf("file item %s missing payload", it.ID)
		}
	case KindRemoteDoc:
		if it.Remote == nil {
			return fmt.Errorf("remote_doc item %s missing payload", it.ID)
		}
	case KindDirectory:
		if it.Directory == nil {
			return fmt.Errorf("directory item %s missing payload", it.ID)
		}
	default:
		return fmt.Errorf("item %s has unknown kind %q", it.ID, it.Kind)
	}
	return nil
}

// DisplayLabel renders the one-line label shown for the item.
func (it *DataItem) DisplayLabel() string {
	switch it.Kind {
	case KindManual:
		preview := firstLine(it.Manual.Text, 60)
		if preview == "" {
			preview = "(empty)"
		}
		return "Manual prompt: " + preview
	case KindFile:
		name := filepath.Base(it.File.SourcePath)
		return fmt.Sprintf("File: %s (%d bytes)", name, it.File.SizeBytes)
	case KindRemoteDoc:
		title := it.Remote.Title
		if title == "" {
			title = "untitled"
		}
		return fmt.Sprintf("Remote document: %s [%s]", title, it.Remote.RemoteID)
	case KindDirectory:
		return fmt.Sprintf("Directory: %s (%d files)", it.Directory.RootPath, len(it.Directory.Files))
	default:
		return fmt.Sprintf("Unknown kind: %s", it.Kind)
	}
}

// ContentText extracts the item's raw content without merge headers.
func (it *DataItem) ContentText() string {
	switch it.Kind {
	case KindManual:
		return strings.TrimSpace(it.Manual.Text)
	case KindFile:
		return strings.TrimSpace(it.File.Content)
	case KindRemoteDoc:
		return strings.TrimSpace(it.Remote.Content)
	case KindDirectory:
		var b strings.Builder
		fmt.Fprintf(&b, "[Directory: %s]\n", it.Directory.RootPath)
		for _, f := range it.Directory.Files {
			content := strings.TrimSpace(f.Content)
			if content == "" {
				continue
			}
			fmt.Fprintf(&b, "\n[%s]\n%s\n", filepath.Base(f.SourcePath), content)
		}
		return strings.TrimRight(b.String(), "\n")
	default:
		return ""
	}
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (it *DataItem) Clone() *DataItem {
	cp := &DataItem{ID: it.ID, Kind: it.Kind}
	if it.Manual != nil {
		m := *it.Manual
		cp.Manual = &m
	}
	if it.File != nil {
		f := *it.File
		cp.File = &f
	}
	if it.Remote != nil {
		r := *it.Remote
		cp.Remote = &r
	}
	if it.Directory != nil {
		d := DirectoryPayload{RootPath: it.Directory.RootPath, Files: append([]FileEntry(nil), it.Directory.Files...)}
		cp.Directory = &d
	}
	return cp
}

func firstLine(s string, max int) string {
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		if len(r) > max {
			return string(r[:max])
		}
		return line
	}
	return ""
}

// GuessDisplayName picks a display name for extracted content: the first
// non-empty line, capped at 80 runes.
func GuessDisplayName(content string) string {
	return firstLine(content, 80)
}

// SavedPrompt is a reusable manual prompt persisted in the config document.
// Text is the unique key; re-saving an existing text updates Note and Updated.
type SavedPrompt struct {
	Text    string `json:"text"`
	Note    string `json:"note"`
	Created string `json:"created"`
	Updated string `json:"updated"`
}

// ConfigDocument is the flat persisted document shared by API settings, saved
// prompts and the collection snapshot.
type ConfigDocument struct {
	APIBaseURL    string        `json:"api_base_url"`
	APIToken      string        `json:"api_token"`
	Timeout       int           `json:"timeout"`
	ManualPrompts []SavedPrompt `json:"manual_prompts"`
	ListItems     []DataItem    `json:"list_items"`
}

// RawConfigKeys are the document keys owned by this process. A save rewrites
// only these, preserving anything else found in the file.
var RawConfigKeys = []string{"api_base_url", "api_token", "timeout", "manual_prompts", "list_items"}

// MarshalOwnedKeys renders the owned keys of the document as raw JSON values.
func (d *ConfigDocument) MarshalOwnedKeys() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(RawConfigKeys))
	for _, kv := range []struct {
		key string
		val any
	}{
		{"api_base_url", d.APIBaseURL},
		{"api_token", d.APIToken},
		{"timeout", d.Timeout},
		{"manual_prompts", d.ManualPrompts},
		{"list_items", d.ListItems},
	} {
		b, err := json.Marshal(kv.val)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", kv.key, err)
		}
		out[kv.key] = b
	}
	return out, nil
}

// Progress is a point-in-time view of a running ingestion batch.
type Progress struct {
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Message string `json:"message"`
	Running bool   `json:"running"`
}
