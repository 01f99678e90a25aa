package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ItemType selects one of the two lists a restaurant keeps.
type ItemType int

const (
	Dish ItemType = iota
	Drink
)

const (
	LabelDish  = "菜品"
	LabelDrink = "饮品"

	QueryDish  = "吃什么"
	QueryDrink = "喝什么"
)

// Label is the category name used in commands, replies and the stored document.
func (t ItemType) Label() string {
	if t == Drink {
		return LabelDrink
	}
	return LabelDish
}

func (t ItemType) String() string {
	if t == Drink {
		return "drink"
	}
	return "dish"
}

func ParseItemType(label string) (ItemType, error) {
	switch label {
	case LabelDish:
		return Dish, nil
	case LabelDrink:
		return Drink, nil
	}
	return Dish, fmt.Errorf("unknown item type: %q", label)
}

// ItemTypeForQuery maps a query suffix (吃什么/喝什么) to the list it draws from.
func ItemTypeForQuery(suffix string) ItemType {
	if suffix == QueryDrink {
		return Drink
	}
	return Dish
}

// RestaurantEntry holds one restaurant's dishes and drinks in insertion order.
type RestaurantEntry struct {
	Dishes []string `json:"菜品"`
	Drinks []string `json:"饮品"`
	// Extra holds any other keys of a hand-edited document so a save keeps them.
	Extra map[string]json.RawMessage `json:"-"`
}

func NewRestaurantEntry() *RestaurantEntry {
	return &RestaurantEntry{Dishes: []string{}, Drinks: []string{}}
}

// Items returns the list for t. The slice aliases the entry.
func (e *RestaurantEntry) Items(t ItemType) []string {
	if t == Drink {
		return e.Drinks
	}
	return e.Dishes
}

func (e *RestaurantEntry) SetItems(t ItemType, items []string) {
	if t == Drink {
		e.Drinks = items
		return
	}
	e.Dishes = items
}

func (e *RestaurantEntry) Empty() bool {
	return len(e.Dishes) == 0 && len(e.Drinks) == 0
}

// UnmarshalJSON reads the two lists and keeps unknown keys in Extra.
func (e *RestaurantEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = RestaurantEntry{}
	for key, value := range raw {
		switch key {
		case LabelDish:
			if err := json.Unmarshal(value, &e.Dishes); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		case LabelDrink:
			if err := json.Unmarshal(value, &e.Drinks); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]json.RawMessage)
			}
			e.Extra[key] = value
		}
	}
	return nil
}

// MarshalJSON writes missing lists as [] rather than null, then any extra
// keys in sorted order.
func (e RestaurantEntry) MarshalJSON() ([]byte, error) {
	dishes, drinks := e.Dishes, e.Drinks
	if dishes == nil {
		dishes = []string{}
	}
	if drinks == nil {
		drinks = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	field := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(key); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		buf.Truncate(buf.Len() - 1)
		return nil
	}

	buf.WriteByte('{')
	if err := field(LabelDish, dishes); err != nil {
		return nil, err
	}
	if err := field(LabelDrink, drinks); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(e.Extra))
	for key := range e.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := field(key, e.Extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Menu maps a restaurant name to its entry.
type Menu map[string]*RestaurantEntry
