package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"eatwhat-bot/db"

	"github.com/spf13/afero"
)

// SwitchStore persists the per-group feature flag of each plugin.
type SwitchStore interface {
	Enabled(ctx context.Context, groupID, plugin string) (bool, error)
	SetEnabled(ctx context.Context, groupID, plugin string, enabled bool) error
	// Toggle flips the flag in one step and returns the new value.
	Toggle(ctx context.Context, groupID, plugin string) (bool, error)
}

// PGSwitchStore keeps flags in the group_switches table.
type PGSwitchStore struct{}

func NewPGSwitchStore() *PGSwitchStore {
	return &PGSwitchStore{}
}

func (PGSwitchStore) Enabled(ctx context.Context, groupID, plugin string) (bool, error) {
	if db.Pool == nil {
		return false, errors.New("switch store: no database pool")
	}
	var enabled bool
	err := db.Pool.QueryRow(ctx, `
		SELECT enabled FROM group_switches WHERE group_id = $1 AND plugin = $2`,
		groupID, plugin,
	).Scan(&enabled)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("load switch %s/%s: %w", groupID, plugin, err)
	}
	return enabled, nil
}

func (PGSwitchStore) SetEnabled(ctx context.Context, groupID, plugin string, enabled bool) error {
	if db.Pool == nil {
		return errors.New("switch store: no database pool")
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO group_switches (group_id, plugin, enabled, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (group_id, plugin) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			updated_at = now()`,
		groupID, plugin, enabled,
	)
	if err != nil {
		return fmt.Errorf("save switch %s/%s: %w", groupID, plugin, err)
	}
	return nil
}

// Toggle flips the flag atomically; a group without a row starts off, so its
// first toggle turns the plugin on.
func (PGSwitchStore) Toggle(ctx context.Context, groupID, plugin string) (bool, error) {
	if db.Pool == nil {
		return false, errors.New("switch store: no database pool")
	}
	var enabled bool
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO group_switches (group_id, plugin, enabled, updated_at)
		VALUES ($1, $2, TRUE, now())
		ON CONFLICT (group_id, plugin) DO UPDATE SET
			enabled = NOT group_switches.enabled,
			updated_at = now()
		RETURNING enabled`,
		groupID, plugin,
	).Scan(&enabled)
	if err != nil {
		return false, fmt.Errorf("toggle switch %s/%s: %w", groupID, plugin, err)
	}
	return enabled, nil
}

// FileSwitchStore keeps flags in a JSON document shaped
// {"<group>": {"<plugin>": true}}.
type FileSwitchStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

func NewFileSwitchStore(fs afero.Fs, path string) *FileSwitchStore {
	return &FileSwitchStore{fs: fs, path: path}
}

func (s *FileSwitchStore) Enabled(ctx context.Context, groupID, plugin string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return doc[groupID][plugin], nil
}

func (s *FileSwitchStore) SetEnabled(ctx context.Context, groupID, plugin string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	return s.set(doc, groupID, plugin, enabled)
}

func (s *FileSwitchStore) Toggle(ctx context.Context, groupID, plugin string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	enabled := !doc[groupID][plugin]
	if err := s.set(doc, groupID, plugin, enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

// set records the flag in doc and writes it out. Callers hold s.mu.
func (s *FileSwitchStore) set(doc map[string]map[string]bool, groupID, plugin string, enabled bool) error {
	if doc[groupID] == nil {
		doc[groupID] = map[string]bool{}
	}
	doc[groupID][plugin] = enabled

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode switches: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create switch dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSwitchStore) load(ctx context.Context) (map[string]map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := map[string]map[string]bool{}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return doc, nil
}
