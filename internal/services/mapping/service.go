// Package mapping keeps the email to user-id cache between runs.
//
// The cache file uses the format {"email": [teamId, userId]}. It is a
// best-effort side file: a missing or corrupt file yields an empty cache,
// and the member list fetched on each run always wins over cached entries.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/j-veylop/cursor-usage-dashboard/internal/logger"
	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

// Entry is a cached identity.
type Entry struct {
	TeamID int64
	UserID int64
}

// Service is the email to user-id cache.
type Service struct {
	filePath string
	entries  map[string]Entry
	existed  bool
	dirty    bool
	mu       sync.RWMutex
}

// Load reads the cache at filePath. It never fails: problems are logged and
// an empty cache is returned.
func Load(filePath string) *Service {
	s := &Service{filePath: filePath, entries: make(map[string]Entry)}

	data, err := os.ReadFile(filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("Email mapping cache not found", "path", filePath)
		return s
	case err != nil:
		logger.Warn("Failed to read email mapping cache", "path", filePath, "error", err)
		return s
	}
	s.existed = true

	entries, err := parseEntries(data)
	if err != nil {
		logger.Warn("Ignoring corrupt email mapping cache", "path", filePath, "error", err)
		s.dirty = true
		return s
	}
	s.entries = entries
	logger.Debug("Loaded email mapping cache", "path", filePath, "entries", len(entries))
	return s
}

func parseEntries(data []byte) (map[string]Entry, error) {
	var raw map[string][]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	entries := make(map[string]Entry, len(raw))
	for email, ids := range raw {
		email = models.NormalizeEmail(email)
		if email == "" || len(ids) != 2 {
			continue
		}
		entries[email] = Entry{TeamID: ids[0], UserID: ids[1]}
	}
	return entries, nil
}

// Path returns the cache file path.
func (s *Service) Path() string {
	return s.filePath
}

// Len returns the number of cached entries.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Lookup returns the cached identity for email.
func (s *Service) Lookup(email string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[models.NormalizeEmail(email)]
	return e, ok
}

// Merge records the identities of members, returning how many entries were
// added or changed.
func (s *Service) Merge(teamID int64, members []models.Member) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, m := range members {
		if m.Email == "" || m.UserID == 0 {
			continue
		}
		next := Entry{TeamID: teamID, UserID: m.UserID}
		if cur, ok := s.entries[m.Email]; ok && cur == next {
			continue
		}
		s.entries[m.Email] = next
		changed++
	}
	if changed > 0 {
		s.dirty = true
	}
	return changed
}

// Resolve turns emails into members, preferring the fetched team list and
// falling back to cached ids for the given team. Emails known to neither
// come back with a zero UserID.
func (s *Service) Resolve(teamID int64, emails []string, team []models.Member) []models.Member {
	byEmail := make(map[string]models.Member, len(team))
	for _, m := range team {
		byEmail[m.Email] = m
	}

	out := make([]models.Member, 0, len(emails))
	for _, email := range emails {
		if m, ok := byEmail[email]; ok && m.UserID != 0 {
			out = append(out, m)
			continue
		}
		m := models.Member{Email: email}
		if e, ok := s.Lookup(email); ok && e.TeamID == teamID {
			m.UserID = e.UserID
		}
		out = append(out, m)
	}
	return out
}

// Save writes the cache if it changed or did not exist yet.
func (s *Service) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.existed && !s.dirty {
		return nil
	}
	if err := s.saveLocked(); err != nil {
		return err
	}
	s.existed = true
	s.dirty = false
	return nil
}

func (s *Service) saveLocked() error {
	raw := make(map[string][2]int64, len(s.entries))
	for email, e := range s.entries {
		raw[email] = [2]int64{e.TeamID, e.UserID}
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal email mapping: %w", err)
	}

	if dir := filepath.Dir(s.filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create mapping directory: %w", err)
		}
	}

	// Write to temp file first, then rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	logger.Debug("Saved email mapping cache", "path", s.filePath, "entries", len(raw))
	return nil
}
