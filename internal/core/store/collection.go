// Package store holds the ordered, mutable collection of data items and
// renders it into a single text artifact.
package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"promptstack/internal/models"
)

// divider separates items in merged output. The last item carries none.
var divider = "\n" + strings.Repeat("-", 80) + "\n"

// Collection is an ordered sequence of DataItem. Order is user-meaningful: it
// is the merge order. The orchestrator is the single writer, but every
// operation still takes the mutex so snapshots never observe a partial
// mutation.
type Collection struct {
	mu    sync.Mutex
	items []*models.DataItem
	log   *zap.Logger
}

func NewCollection(log *zap.Logger) *Collection {
	return &Collection{log: log}
}

// Append adds the item at the end of the sequence.
func (c *Collection) Append(item *models.DataItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

// Items returns a deep copy of the current sequence.
func (c *Collection) Items() []models.DataItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.DataItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, *it.Clone())
	}
	return out
}

// Len reports the number of items.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Remove deletes every item whose id is in ids, preserving the order of the
// rest. Unknown ids are ignored.
func (c *Collection) Remove(ids []string) int {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0]
	removed := 0
	for _, it := range c.items {
		if set[it.ID] {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	c.items = kept
	return removed
}

// MoveToIndex moves the item with id to the given position, clamped to the
// valid range.
func (c *Collection) MoveToIndex(id string, index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.indexOfLocked(id)
	if from < 0 {
		return false
	}
	item := c.items[from]
	c.items = append(c.items[:from], c.items[from+1:]...)

	if index < 0 {
		index = 0
	}
	if index > len(c.items) {
		index = len(c.items)
	}
	c.items = append(c.items[:index], append([]*models.DataItem{item}, c.items[index:]...)...)
	return true
}

func (c *Collection) MoveToTop(id string) bool { return c.MoveToIndex(id, 0) }

func (c *Collection) MoveToBottom(id string) bool {
	c.mu.Lock()
	n := len(c.items)
	c.mu.Unlock()
	return c.MoveToIndex(id, n-1)
}

// DuplicateContent renders the content of the selected items for copying.
// With more than one selection each block gets the item's display label as a
// header; a single selection returns its bare content.
func (c *Collection) DuplicateContent(ids []string) string {
	c.mu.Lock()
	var selected []*models.DataItem
	for _, id := range ids {
		if i := c.indexOfLocked(id); i >= 0 {
			selected = append(selected, c.items[i])
		}
	}
	c.mu.Unlock()

	var blocks []string
	for _, it := range selected {
		content := it.ContentText()
		if content == "" {
			continue
		}
		if len(selected) > 1 {
			blocks = append(blocks, fmt.Sprintf("[%s]\n%s\n", it.DisplayLabel(), content))
		} else {
			blocks = append(blocks, content)
		}
	}
	return strings.Join(blocks, divider)
}

// Clear empties the sequence.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Merge renders every item in sequence order into one text artifact. Each
// item contributes a labeled block even when its content is empty; blocks are
// separated by an 80-dash divider with none after the last.
func (c *Collection) Merge() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	for i, it := range c.items {
		b.WriteString(renderItem(it))
		if i < len(c.items)-1 {
			b.WriteString(divider)
		}
	}
	return b.String()
}

func renderItem(it *models.DataItem) string {
	switch it.Kind {
	case models.KindManual:
		text := strings.TrimSpace(it.Manual.Text)
		if text == "" {
			return "[Manual prompt (empty)]\n"
		}
		return fmt.Sprintf("[Manual prompt]\n%s\n", text)

	case models.KindFile:
		name := filepath.Base(it.File.SourcePath)
		content := strings.TrimSpace(it.File.Content)
		if content == "" {
			return fmt.Sprintf("[%s (empty)]\n", name)
		}
		return fmt.Sprintf("[%s]\n%s\n", name, content)

	case models.KindRemoteDoc:
		title := it.Remote.Title
		if title == "" {
			title = "untitled"
		}
		content := strings.TrimSpace(it.Remote.Content)
		if content == "" {
			return fmt.Sprintf("[%s [%s] (empty)]\n", title, it.Remote.RemoteID)
		}
		return fmt.Sprintf("[%s [%s]]\n%s\n", title, it.Remote.RemoteID, content)

	case models.KindDirectory:
		var b strings.Builder
		fmt.Fprintf(&b, "[Directory: %s (%d files)]\n", it.Directory.RootPath, len(it.Directory.Files))
		for _, f := range it.Directory.Files {
			name := filepath.Base(f.SourcePath)
			content := strings.TrimSpace(f.Content)
			if content == "" {
				fmt.Fprintf(&b, "  |- %s (empty)\n", name)
			} else {
				fmt.Fprintf(&b, "  |- %s\n%s\n", name, content)
			}
		}
		return b.String()

	default:
		return fmt.Sprintf("[Unknown kind: %s]\n", it.Kind)
	}
}

// Snapshot returns the persisted form: a deep copy of the ordered sequence.
func (c *Collection) Snapshot() []models.DataItem {
	return c.Items()
}

// Restore replaces the sequence with the persisted items, preserving their
// original ids. Malformed records are skipped individually and reported, not
// fatal to the rest.
func (c *Collection) Restore(items []models.DataItem) int {
	restored := make([]*models.DataItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i := range items {
		it := items[i].Clone()
		if err := it.Validate(); err != nil {
			c.log.Warn("skipping malformed persisted item", zap.Error(err))
			continue
		}
		if seen[it.ID] {
			c.log.Warn("skipping duplicate persisted item id", zap.String("id", it.ID))
			continue
		}
		seen[it.ID] = true
		restored = append(restored, it)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = restored
	return len(restored)
}

func (c *Collection) indexOfLocked(id string) int {
	for i, it := range c.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
