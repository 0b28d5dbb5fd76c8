// Package settings owns the flat JSON configuration document shared by the
// remote API settings, saved prompts and the collection snapshot.
//
// Persistence is best-effort: a failed write is logged and the in-memory
// state stays authoritative. Every save re-reads the file and rewrites only
// the keys this process owns, so unrelated keys placed there by other tools
// survive.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"promptstack/internal/models"
)

const (
	// DefaultTimeout is the remote fetch timeout, in seconds.
	DefaultTimeout = 8

	timeLabelLayout = "2006-01-02 15:04:05"
)

// Store reads and writes the config document at a fixed path.
type Store struct {
	path string
	log  *zap.Logger

	mu  sync.Mutex
	doc models.ConfigDocument
}

// Open loads the document at path. An absent file is created with empty
// defaults; a malformed file falls back to in-memory defaults without
// touching the file until the next explicit save.
func Open(path string, log *zap.Logger) *Store {
	s := &Store{path: path, log: log, doc: defaults()}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if werr := s.writeLocked(); werr != nil {
			log.Warn("could not create config file", zap.String("path", path), zap.Error(werr))
		}
		return s
	}
	if err != nil {
		log.Warn("could not read config file, using defaults", zap.String("path", path), zap.Error(err))
		return s
	}

	var doc models.ConfigDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Warn("malformed config file, using defaults", zap.String("path", path), zap.Error(err))
		return s
	}
	if doc.Timeout <= 0 {
		doc.Timeout = DefaultTimeout
	}
	if doc.ManualPrompts == nil {
		doc.ManualPrompts = []models.SavedPrompt{}
	}
	if doc.ListItems == nil {
		doc.ListItems = []models.DataItem{}
	}
	s.doc = doc
	return s
}

func defaults() models.ConfigDocument {
	return models.ConfigDocument{
		Timeout:       DefaultTimeout,
		ManualPrompts: []models.SavedPrompt{},
		ListItems:     []models.DataItem{},
	}
}

// Document returns a copy of the current in-memory document.
func (s *Store) Document() models.ConfigDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() models.ConfigDocument {
	doc := s.doc
	doc.ManualPrompts = append([]models.SavedPrompt(nil), s.doc.ManualPrompts...)
	doc.ListItems = append([]models.DataItem(nil), s.doc.ListItems...)
	return doc
}

// UpdateAPISettings replaces the remote API connection settings and saves.
func (s *Store) UpdateAPISettings(baseURL, token string, timeout int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s.doc.APIBaseURL = baseURL
	s.doc.APIToken = token
	s.doc.Timeout = timeout
	s.saveLocked()
}

// SaveItems persists the collection snapshot under list_items.
func (s *Store) SaveItems(items []models.DataItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ListItems = append([]models.DataItem(nil), items...)
	s.saveLocked()
}

// Items returns the persisted collection snapshot.
func (s *Store) Items() []models.DataItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DataItem(nil), s.doc.ListItems...)
}

// Prompts lists the saved prompts in insertion order.
func (s *Store) Prompts() []models.SavedPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SavedPrompt(nil), s.doc.ManualPrompts...)
}

// AddOrUpdatePrompt saves a prompt keyed by its exact text. An existing text
// gets its note and updated timestamp refreshed instead of a second record.
func (s *Store) AddOrUpdatePrompt(text, note string) {
	if text == "" {
		return
	}
	now := time.Now().Format(timeLabelLayout)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.ManualPrompts {
		if s.doc.ManualPrompts[i].Text == text {
			s.doc.ManualPrompts[i].Note = note
			s.doc.ManualPrompts[i].Updated = now
			s.saveLocked()
			return
		}
	}
	s.doc.ManualPrompts = append(s.doc.ManualPrompts, models.SavedPrompt{
		Text: text, Note: note, Created: now, Updated: now,
	})
	s.saveLocked()
}

// TouchPrompt refreshes the updated timestamp (and note, when non-empty) of
// an existing prompt with the same text. Unlike AddOrUpdatePrompt it never
// creates a record; appending a manual item must not implicitly save it.
func (s *Store) TouchPrompt(text, note string) bool {
	now := time.Now().Format(timeLabelLayout)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.ManualPrompts {
		if s.doc.ManualPrompts[i].Text == text {
			if note != "" {
				s.doc.ManualPrompts[i].Note = note
			}
			s.doc.ManualPrompts[i].Updated = now
			s.saveLocked()
			return true
		}
	}
	return false
}

// DeletePrompt removes the prompt with the exact text.
func (s *Store) DeletePrompt(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.doc.ManualPrompts[:0]
	for _, p := range s.doc.ManualPrompts {
		if p.Text != text {
			kept = append(kept, p)
		}
	}
	s.doc.ManualPrompts = kept
	s.saveLocked()
}

// saveLocked persists the document, logging instead of failing: persistence
// problems must never corrupt in-memory state.
func (s *Store) saveLocked() {
	if err := s.writeLocked(); err != nil {
		s.log.Warn("config save failed", zap.String("path", s.path), zap.Error(err))
	}
}

// writeLocked read-modify-writes the whole file: current on-disk keys are
// kept, the keys this process owns are replaced, and the result is written
// atomically via a temp file rename.
func (s *Store) writeLocked() error {
	onDisk := map[string]json.RawMessage{}
	if raw, err := os.ReadFile(s.path); err == nil {
		// A malformed file is overwritten entirely at this point; the
		// explicit save is what authorizes that.
		_ = json.Unmarshal(raw, &onDisk)
	}

	owned, err := s.doc.MarshalOwnedKeys()
	if err != nil {
		return err
	}
	for k, v := range owned {
		onDisk[k] = v
	}

	out, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("temp config file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
