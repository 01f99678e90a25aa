package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"eatwhat-bot/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMenuPath = "/data/eatwhat/menu.json"

func newTestStore(t *testing.T) (*MenuStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewMenuStore(fs, testMenuPath), fs
}

// first always picks index 0; last picks n-1.
func first(int) int  { return 0 }
func last(n int) int { return n - 1 }

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	menu, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, menu)
}

func TestLoadCorruptDocument(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, testMenuPath, []byte("{not json"), 0o644))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageRead))
}

func TestSaveKeepsUnicodeAndIndent(t *testing.T) {
	store, fs := newTestStore(t)
	menu := models.Menu{}
	AddItem(menu, "肯德基", models.Dish, "香辣鸡腿堡")

	require.NoError(t, store.Save(context.Background(), menu))

	data, err := afero.ReadFile(fs, testMenuPath)
	require.NoError(t, err)
	want := "{\n  \"肯德基\": {\n    \"菜品\": [\n      \"香辣鸡腿堡\"\n    ],\n    \"饮品\": []\n  }\n}\n"
	assert.Equal(t, want, string(data))
}

func TestSaveDoesNotEscapeHTML(t *testing.T) {
	store, fs := newTestStore(t)
	menu := models.Menu{}
	AddItem(menu, "A&W", models.Drink, "<root beer>")
	require.NoError(t, store.Save(context.Background(), menu))

	data, err := afero.ReadFile(fs, testMenuPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"A&W"`)
	assert.Contains(t, string(data), `"<root beer>"`)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, fs := newTestStore(t)
	doc := `{"肯德基":{"菜品":["香辣鸡腿堡","薯条"],"饮品":["可乐"]},"蜜雪冰城":{"菜品":[],"饮品":["柠檬水"]}}`
	require.NoError(t, afero.WriteFile(fs, testMenuPath, []byte(doc), 0o644))

	ctx := context.Background()
	menu, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, menu))

	data, err := afero.ReadFile(fs, testMenuPath)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(data))
}

func TestLoadFillsMissingLists(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, testMenuPath, []byte(`{"肯德基":{"菜品":["薯条"]},"空":null}`), 0o644))

	ctx := context.Background()
	menu, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, menu))

	data, err := afero.ReadFile(fs, testMenuPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"肯德基":{"菜品":["薯条"],"饮品":[]},"空":{"菜品":[],"饮品":[]}}`, string(data))
}

func TestUpdateKeepsUnknownEntryKeys(t *testing.T) {
	store, fs := newTestStore(t)
	doc := `{"肯德基":{"菜品":["薯条"],"饮品":[],"备注":"疯狂星期四"}}`
	require.NoError(t, afero.WriteFile(fs, testMenuPath, []byte(doc), 0o644))

	err := store.Update(context.Background(), func(menu models.Menu) (bool, error) {
		return AddItem(menu, "肯德基", models.Drink, "可乐") == Added, nil
	})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, testMenuPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"肯德基":{"菜品":["薯条"],"饮品":["可乐"],"备注":"疯狂星期四"}}`, string(data))
}

func TestAddItemDuplicate(t *testing.T) {
	menu := models.Menu{}
	assert.Equal(t, Added, AddItem(menu, "肯德基", models.Dish, "香辣鸡腿堡"))
	assert.Equal(t, Duplicate, AddItem(menu, "肯德基", models.Dish, "香辣鸡腿堡"))
	assert.Len(t, menu["肯德基"].Dishes, 1)
	assert.Empty(t, menu["肯德基"].Drinks)

	// Same string in the other list is not a duplicate.
	assert.Equal(t, Added, AddItem(menu, "肯德基", models.Drink, "香辣鸡腿堡"))
}

func TestAddItemKeepsInsertionOrder(t *testing.T) {
	menu := models.Menu{}
	for _, it := range []string{"c", "a", "b"} {
		AddItem(menu, "r", models.Dish, it)
	}
	assert.Equal(t, []string{"c", "a", "b"}, menu["r"].Dishes)
}

func TestRemoveItem(t *testing.T) {
	menu := models.Menu{}
	AddItem(menu, "肯德基", models.Dish, "香辣鸡腿堡")
	AddItem(menu, "肯德基", models.Drink, "可乐")

	assert.Equal(t, RestaurantNotFound, RemoveItem(menu, "麦当劳", models.Dish, "巨无霸"))
	assert.Equal(t, ItemNotFound, RemoveItem(menu, "肯德基", models.Dish, "可乐"))

	assert.Equal(t, Removed, RemoveItem(menu, "肯德基", models.Dish, "香辣鸡腿堡"))
	require.Contains(t, menu, "肯德基")
	assert.Empty(t, menu["肯德基"].Dishes)

	assert.Equal(t, Removed, RemoveItem(menu, "肯德基", models.Drink, "可乐"))
	assert.NotContains(t, menu, "肯德基")
}

func TestAddRemoveKeepsRestaurantsNonEmpty(t *testing.T) {
	menu := models.Menu{}
	ops := []struct {
		add        bool
		restaurant string
		t          models.ItemType
		item       string
	}{
		{true, "a", models.Dish, "1"},
		{true, "a", models.Drink, "2"},
		{true, "b", models.Dish, "3"},
		{false, "a", models.Dish, "1"},
		{false, "b", models.Dish, "3"},
		{false, "a", models.Dish, "missing"},
		{true, "c", models.Drink, "4"},
		{false, "a", models.Drink, "2"},
	}
	for _, op := range ops {
		if op.add {
			AddItem(menu, op.restaurant, op.t, op.item)
		} else {
			RemoveItem(menu, op.restaurant, op.t, op.item)
		}
		for name, entry := range menu {
			assert.False(t, entry.Empty(), "restaurant %q left empty", name)
		}
	}
	assert.Equal(t, []string{"c"}, sortedNames(menu))
}

func TestPickRandomExactMatch(t *testing.T) {
	menu := models.Menu{}
	AddItem(menu, "肯德基", models.Dish, "香辣鸡腿堡")
	AddItem(menu, "肯德基", models.Dish, "薯条")
	AddItem(menu, "肯德基宅急送", models.Dish, "全家桶")

	r, item, ok := PickRandom(menu, "肯德基", models.Dish, last)
	require.True(t, ok)
	assert.Equal(t, "肯德基", r)
	assert.Equal(t, "薯条", item)
}

func TestPickRandomSubstringMatch(t *testing.T) {
	menu := models.Menu{}
	AddItem(menu, "肯德基", models.Dish, "香辣鸡腿堡")
	AddItem(menu, "麦当劳", models.Dish, "巨无霸")

	r, item, ok := PickRandom(menu, "肯德", models.Dish, first)
	require.True(t, ok)
	assert.Equal(t, "肯德基", r)
	assert.Equal(t, "香辣鸡腿堡", item)

	// The stored name inside the hint also matches.
	r, _, ok = PickRandom(menu, "去麦当劳", models.Dish, first)
	require.True(t, ok)
	assert.Equal(t, "麦当劳", r)
}

func TestPickRandomSubstringSkipsEmptyLists(t *testing.T) {
	menu := models.Menu{}
	AddItem(menu, "肯德基", models.Drink, "可乐")
	AddItem(menu, "肯德基宅急送", models.Dish, "全家桶")

	r, item, ok := PickRandom(menu, "肯德基", models.Dish, first)
	require.True(t, ok)
	assert.Equal(t, "肯德基宅急送", r)
	assert.Equal(t, "全家桶", item)
}

func TestPickRandomUnmatchedHintFallsBack(t *testing.T) {
	menu := models.Menu{}
	AddItem(menu, "肯德基", models.Dish, "香辣鸡腿堡")

	r, item, ok := PickRandom(menu, "德基肯", models.Dish, first)
	require.True(t, ok)
	assert.Equal(t, "肯德基", r)
	assert.Equal(t, "香辣鸡腿堡", item)
}

func TestPickRandomNoHintFlattensPairs(t *testing.T) {
	menu := models.Menu{}
	AddItem(menu, "a", models.Dish, "a1")
	AddItem(menu, "b", models.Dish, "b1")
	AddItem(menu, "b", models.Dish, "b2")

	var got []string
	for i := 0; i < 3; i++ {
		idx := i
		r, item, ok := PickRandom(menu, "", models.Dish, func(n int) int {
			require.Equal(t, 3, n)
			return idx
		})
		require.True(t, ok)
		got = append(got, r+"/"+item)
	}
	assert.Equal(t, []string{"a/a1", "b/b1", "b/b2"}, got)
}

func TestPickRandomEmpty(t *testing.T) {
	r, item, ok := PickRandom(models.Menu{}, "anything", models.Dish, nil)
	assert.False(t, ok)
	assert.Empty(t, r)
	assert.Empty(t, item)

	menu := models.Menu{}
	AddItem(menu, "肯德基", models.Drink, "可乐")
	_, _, ok = PickRandom(menu, "肯德基", models.Dish, nil)
	assert.False(t, ok)
}

func TestUpdateSerializesWriters(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Update(ctx, func(menu models.Menu) (bool, error) {
				return AddItem(menu, "r", models.Dish, strings.Repeat("x", i+1)) == Added, nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	menu, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, menu["r"].Dishes, 20)
}

func TestUpdateSkipsSaveWhenUnchanged(t *testing.T) {
	store, fs := newTestStore(t)
	err := store.Update(context.Background(), func(models.Menu) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	exists, err := afero.Exists(fs, testMenuPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdatePropagatesError(t *testing.T) {
	store, _ := newTestStore(t)
	boom := errors.New("boom")
	err := store.Update(context.Background(), func(models.Menu) (bool, error) {
		return true, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestMenuDocumentShape(t *testing.T) {
	menu := models.Menu{}
	AddItem(menu, "肯德基", models.Dish, "香辣鸡腿堡")
	data, err := json.Marshal(menu)
	require.NoError(t, err)
	assert.JSONEq(t, `{"肯德基":{"菜品":["香辣鸡腿堡"],"饮品":[]}}`, string(data))
}
