package bot

import (
	"context"
	"fmt"

	"eatwhat-bot/metrics"
	"eatwhat-bot/models"
	"eatwhat-bot/services"

	"go.uber.org/zap"
)

// Dispatcher is the per-transport entry point for inbound events. It never
// lets a failure escape: errors and panics turn into a failure reply.
type Dispatcher struct {
	router    *Router
	messenger Messenger
	store     *services.MenuStore
	plugin    string
	transport string
	log       *zap.SugaredLogger
}

func NewDispatcher(router *Router, messenger Messenger, store *services.MenuStore, plugin, transport string, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		router:    router,
		messenger: messenger,
		store:     store,
		plugin:    plugin,
		transport: transport,
		log:       log.With("transport", transport),
	}
}

// HandleEvent satisfies EventHandler.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev models.Event) {
	metrics.EventsTotal.WithLabelValues(ev.Kind(), d.transport).Inc()
	defer func() {
		if r := recover(); r != nil {
			d.fail(ctx, ev, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := d.handle(ctx, ev); err != nil {
		d.fail(ctx, ev, err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev models.Event) error {
	if ev.IsResponse() {
		return d.handleResponse(ev)
	}
	switch ev.PostType {
	case models.PostTypeMetaEvent:
		return d.store.EnsureDir()
	case models.PostTypeMessage:
		switch ev.MessageType {
		case models.MessageTypeGroup:
			return d.handleGroupMessage(ctx, ev)
		case models.MessageTypePrivate:
			// No private commands.
			return nil
		}
	case models.PostTypeNotice:
		d.log.Debugw("notice ignored", "notice_type", ev.NoticeType, "group_id", ev.GroupID)
	}
	return nil
}

func (d *Dispatcher) handleResponse(ev models.Event) error {
	if ev.Status != "ok" {
		d.log.Warnw("action failed", "status", ev.Status, "echo", ev.Echo)
		return nil
	}
	d.log.Debugw("action ok", "echo", ev.Echo)
	return nil
}

func (d *Dispatcher) handleGroupMessage(ctx context.Context, ev models.Event) error {
	reply, err := d.router.Route(ctx, ev)
	if err != nil {
		return err
	}
	if reply == "" {
		return nil
	}
	if err := d.messenger.SendGroup(ctx, ev.GroupID, ev.MessageID, reply); err != nil {
		metrics.SendErrorsTotal.WithLabelValues(d.transport).Inc()
		d.log.Errorw("send reply failed", "group_id", ev.GroupID, "message_id", ev.MessageID, "error", err)
	}
	return nil
}

// fail logs err and reports it to the chat the event came from. Events with
// no usable target are only logged.
func (d *Dispatcher) fail(ctx context.Context, ev models.Event, err error) {
	kind := ev.Kind()
	metrics.FailuresTotal.WithLabelValues(kind).Inc()
	d.log.Errorw("event handling failed",
		"post_type", kind,
		"message_type", ev.MessageType,
		"group_id", ev.GroupID,
		"user_id", ev.UserID,
		"error", err,
	)

	text := services.FailureMessage(d.plugin, kind, err)
	var sendErr error
	switch {
	case ev.MessageType == models.MessageTypeGroup && ev.GroupID != "":
		sendErr = d.messenger.SendGroup(ctx, ev.GroupID, ev.MessageID, text)
	case ev.MessageType == models.MessageTypePrivate && ev.UserID != "":
		sendErr = d.messenger.SendPrivate(ctx, ev.UserID, ev.MessageID, text)
	case ev.GroupID != "":
		sendErr = d.messenger.SendGroup(ctx, ev.GroupID, "", text)
	default:
		return
	}
	if sendErr != nil {
		metrics.SendErrorsTotal.WithLabelValues(d.transport).Inc()
		d.log.Errorw("failure reply not delivered", "error", sendErr)
	}
}
