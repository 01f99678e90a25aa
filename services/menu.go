package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"eatwhat-bot/models"

	"github.com/spf13/afero"
)

var ErrStorageRead = errors.New("menu storage unreadable")

type AddResult int

const (
	Added AddResult = iota
	Duplicate
)

type RemoveResult int

const (
	Removed RemoveResult = iota
	RestaurantNotFound
	ItemNotFound
)

// MenuStore owns the menu document on disk. Every operation goes back to the
// file; nothing is cached between commands.
type MenuStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex // held across load-mutate-save in Update
}

func NewMenuStore(fs afero.Fs, path string) *MenuStore {
	return &MenuStore{fs: fs, path: path}
}

func (s *MenuStore) Path() string {
	return s.path
}

// Load reads the menu document. A missing file is an empty menu.
func (s *MenuStore) Load(ctx context.Context) (models.Menu, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Menu{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorageRead, s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Menu{}, nil
	}
	menu := models.Menu{}
	if err := json.Unmarshal(data, &menu); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrStorageRead, s.path, err)
	}
	for name, entry := range menu {
		if entry == nil {
			menu[name] = models.NewRestaurantEntry()
		}
	}
	return menu, nil
}

// Save overwrites the document with an indented UTF-8 rendering of menu.
func (s *MenuStore) Save(ctx context.Context, menu models.Menu) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if menu == nil {
		menu = models.Menu{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(menu); err != nil {
		return fmt.Errorf("encode menu: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Update runs one serialized load-mutate-save cycle. fn reports whether it
// changed the menu; unchanged menus are not written back.
func (s *MenuStore) Update(ctx context.Context, fn func(models.Menu) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	menu, err := s.Load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(menu)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.Save(ctx, menu)
}

// EnsureDir creates the directory holding the document.
func (s *MenuStore) EnsureDir() error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// AddItem appends item to the restaurant's list unless it is already there.
// A new restaurant starts with both lists empty.
func AddItem(menu models.Menu, restaurant string, t models.ItemType, item string) AddResult {
	entry, ok := menu[restaurant]
	if !ok || entry == nil {
		entry = models.NewRestaurantEntry()
		menu[restaurant] = entry
	}
	items := entry.Items(t)
	for _, existing := range items {
		if existing == item {
			return Duplicate
		}
	}
	entry.SetItems(t, append(items, item))
	return Added
}

// RemoveItem drops item from the restaurant's list and removes the
// restaurant once both lists are empty.
func RemoveItem(menu models.Menu, restaurant string, t models.ItemType, item string) RemoveResult {
	entry, ok := menu[restaurant]
	if !ok || entry == nil {
		return RestaurantNotFound
	}
	items := entry.Items(t)
	idx := -1
	for i, existing := range items {
		if existing == item {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ItemNotFound
	}
	kept := make([]string, 0, len(items)-1)
	kept = append(kept, items[:idx]...)
	kept = append(kept, items[idx+1:]...)
	entry.SetItems(t, kept)
	if entry.Empty() {
		delete(menu, restaurant)
	}
	return Removed
}

// Intn returns a uniform value in [0, n).
type Intn func(n int) int

// DefaultIntn is safe for concurrent use.
var DefaultIntn Intn = rand.Intn

// PickRandom chooses a restaurant and an item of type t.
//
// An exact hint match with items wins. Otherwise restaurants whose name
// contains the hint, or is contained in it, are candidates. With no hint or
// no candidates the pick is uniform over every (restaurant, item) pair, so an
// unmatched hint is dropped silently. ok is false only when no restaurant has
// an item of type t.
func PickRandom(menu models.Menu, hint string, t models.ItemType, intn Intn) (restaurant, item string, ok bool) {
	if intn == nil {
		intn = DefaultIntn
	}
	names := sortedNames(menu)

	if hint != "" {
		if entry, found := menu[hint]; found && entry != nil {
			if items := entry.Items(t); len(items) > 0 {
				return hint, items[intn(len(items))], true
			}
		}

		var matched []string
		for _, name := range names {
			if !strings.Contains(name, hint) && !strings.Contains(hint, name) {
				continue
			}
			if len(menu[name].Items(t)) > 0 {
				matched = append(matched, name)
			}
		}
		if len(matched) > 0 {
			chosen := matched[intn(len(matched))]
			items := menu[chosen].Items(t)
			return chosen, items[intn(len(items))], true
		}
	}

	type pair struct{ restaurant, item string }
	var all []pair
	for _, name := range names {
		for _, it := range menu[name].Items(t) {
			all = append(all, pair{name, it})
		}
	}
	if len(all) == 0 {
		return "", "", false
	}
	p := all[intn(len(all))]
	return p.restaurant, p.item, true
}

// sortedNames lists restaurants with a non-nil entry in a stable order.
func sortedNames(menu models.Menu) []string {
	names := make([]string, 0, len(menu))
	for name, entry := range menu {
		if entry != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
