package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"eatwhat-bot/metrics"
	"eatwhat-bot/models"
	"eatwhat-bot/services"

	"go.uber.org/zap"
)

const HelpKeyword = "吃什么帮助"

var (
	// Separators accept Unicode spaces too; IMEs often type U+3000.
	addPattern    = regexp.MustCompile(`^添加(菜品|饮品)[\s\p{Zs}]+([^\s\p{Zs}]+)[\s\p{Zs}]+(.+)$`)
	queryPattern  = regexp.MustCompile(`^(.*)(吃什么|喝什么)$`)
	deletePattern = regexp.MustCompile(`^删除(菜品|饮品)[\s\p{Zs}]+([^\s\p{Zs}]+)[\s\p{Zs}]+(.+)$`)
)

type routeFunc func(ctx context.Context, ev models.Event, match []string) (string, error)

type route struct {
	name  string
	match func(text string) []string
	// ungated routes run even when the group has the plugin switched off.
	ungated bool
	handle  routeFunc
}

type RouterConfig struct {
	PluginName    string
	ToggleKeyword string
}

// Router matches group messages against the command table, first match wins.
type Router struct {
	cfg      RouterConfig
	store    *services.MenuStore
	switches services.SwitchStore
	auth     *services.Authorizer
	intn     services.Intn
	log      *zap.SugaredLogger
	routes   []route
}

func NewRouter(cfg RouterConfig, store *services.MenuStore, switches services.SwitchStore, auth *services.Authorizer, log *zap.SugaredLogger) *Router {
	r := &Router{
		cfg:      cfg,
		store:    store,
		switches: switches,
		auth:     auth,
		intn:     services.DefaultIntn,
		log:      log,
	}
	r.routes = []route{
		{name: "toggle", match: exact(cfg.ToggleKeyword), ungated: true, handle: r.handleToggle},
		{name: "help", match: exact(HelpKeyword), handle: r.handleHelp},
		{name: "add", match: addPattern.FindStringSubmatch, handle: r.handleAdd},
		{name: "query", match: queryPattern.FindStringSubmatch, handle: r.handleQuery},
		{name: "delete", match: deletePattern.FindStringSubmatch, handle: r.handleDelete},
	}
	return r
}

// WithIntn replaces the random source used for suggestions.
func (r *Router) WithIntn(intn services.Intn) *Router {
	r.intn = intn
	return r
}

// Route handles one group message and returns the reply text, or "" when the
// message is not a command or the plugin is off for the group.
func (r *Router) Route(ctx context.Context, ev models.Event) (string, error) {
	text := ev.RawMessage
	for _, rt := range r.routes {
		m := rt.match(text)
		if m == nil {
			continue
		}
		if !rt.ungated {
			enabled, err := r.switches.Enabled(ctx, ev.GroupID, r.cfg.PluginName)
			if err != nil {
				return "", fmt.Errorf("load switch: %w", err)
			}
			if !enabled {
				return "", nil
			}
		}
		reply, err := rt.handle(ctx, ev, m)
		if err != nil {
			metrics.Command(rt.name, "error")
			return "", err
		}
		return reply, nil
	}
	return "", nil
}

func exact(keyword string) func(string) []string {
	return func(text string) []string {
		if keyword != "" && text == keyword {
			return []string{text}
		}
		return nil
	}
}

func (r *Router) handleToggle(ctx context.Context, ev models.Event, _ []string) (string, error) {
	if err := r.auth.Require(ev.CallerRole(), ev.UserID); err != nil {
		metrics.Command("toggle", "denied")
		return services.ToggleDeniedMessage(r.cfg.PluginName), nil
	}
	enabled, err := r.switches.Toggle(ctx, ev.GroupID, r.cfg.PluginName)
	if err != nil {
		return "", fmt.Errorf("toggle switch: %w", err)
	}
	r.log.Infow("plugin toggled", "group_id", ev.GroupID, "user_id", ev.UserID, "enabled", enabled)
	metrics.Command("toggle", "ok")
	return services.ToggleMessage(r.cfg.PluginName, enabled), nil
}

func (r *Router) handleHelp(_ context.Context, _ models.Event, _ []string) (string, error) {
	metrics.Command("help", "ok")
	return services.HelpMessage(r.cfg.ToggleKeyword), nil
}

func (r *Router) handleAdd(ctx context.Context, ev models.Event, m []string) (string, error) {
	t, err := models.ParseItemType(m[1])
	if err != nil {
		return "", err
	}
	restaurant, item := m[2], m[3]

	var result services.AddResult
	err = r.store.Update(ctx, func(menu models.Menu) (bool, error) {
		result = services.AddItem(menu, restaurant, t, item)
		return result == services.Added, nil
	})
	if err != nil {
		return "", err
	}
	if result == services.Duplicate {
		metrics.Command("add", "duplicate")
		return services.DuplicateMessage(t), nil
	}
	r.log.Infow("menu item added", "group_id", ev.GroupID, "user_id", ev.UserID,
		"restaurant", restaurant, "type", t.String(), "item", item)
	metrics.Command("add", "ok")
	return services.AddedMessage(t, restaurant, item), nil
}

func (r *Router) handleQuery(ctx context.Context, _ models.Event, m []string) (string, error) {
	hint := strings.TrimSpace(m[1])
	t := models.ItemTypeForQuery(m[2])

	menu, err := r.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if len(menu) == 0 {
		metrics.Command("query", "empty")
		return services.EmptyMenuMessage(), nil
	}
	restaurant, item, ok := services.PickRandom(menu, hint, t, r.intn)
	if !ok {
		metrics.Command("query", "none")
		return services.NoItemsMessage(t), nil
	}
	metrics.Command("query", "ok")
	return services.PickMessage(t, restaurant, item), nil
}

func (r *Router) handleDelete(ctx context.Context, ev models.Event, m []string) (string, error) {
	if err := r.auth.Require(ev.CallerRole(), ev.UserID); err != nil {
		metrics.Command("delete", "denied")
		return services.DeleteDeniedMessage(), nil
	}
	t, err := models.ParseItemType(m[1])
	if err != nil {
		return "", err
	}
	restaurant, item := m[2], m[3]

	var result services.RemoveResult
	err = r.store.Update(ctx, func(menu models.Menu) (bool, error) {
		result = services.RemoveItem(menu, restaurant, t, item)
		return result == services.Removed, nil
	})
	if err != nil {
		return "", err
	}
	switch result {
	case services.RestaurantNotFound:
		metrics.Command("delete", "restaurant_not_found")
		return services.RestaurantNotFoundMessage(restaurant), nil
	case services.ItemNotFound:
		metrics.Command("delete", "item_not_found")
		return services.ItemNotFoundMessage(t, restaurant, item), nil
	}
	r.log.Infow("menu item removed", "group_id", ev.GroupID, "user_id", ev.UserID,
		"restaurant", restaurant, "type", t.String(), "item", item)
	metrics.Command("delete", "ok")
	return services.RemovedMessage(t, restaurant, item), nil
}
