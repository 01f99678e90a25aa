package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"eatwhat-bot/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const roleCacheTTL = 10 * time.Minute

// TelegramAPI is the slice of tgbotapi.BotAPI the bot uses.
type TelegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

type roleKey struct {
	chatID, userID int64
}

type cachedRole struct {
	role string
	at   time.Time
}

// Bot is the Telegram transport: a long-poll update loop that turns group
// messages into events and sends replies quoting the original message.
type Bot struct {
	api TelegramAPI
	log *zap.SugaredLogger

	roles   map[roleKey]cachedRole
	rolesMu sync.RWMutex

	inflight sync.WaitGroup
}

func New(token string, log *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return NewWithAPI(api, log), nil
}

func NewWithAPI(api TelegramAPI, log *zap.SugaredLogger) *Bot {
	return &Bot{
		api:   api,
		log:   log.With("transport", "telegram"),
		roles: make(map[roleKey]cachedRole),
	}
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context, handle EventHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			msg := update.Message
			b.inflight.Add(1)
			go func() {
				defer b.inflight.Done()
				handle(ctx, b.toEvent(msg))
			}()
		}
	}
}

func (b *Bot) toEvent(msg *tgbotapi.Message) models.Event {
	ev := models.Event{
		PostType:   models.PostTypeMessage,
		UserID:     strconv.FormatInt(msg.From.ID, 10),
		MessageID:  strconv.Itoa(msg.MessageID),
		RawMessage: strings.TrimSpace(msg.Text),
	}
	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		ev.MessageType = models.MessageTypeGroup
		ev.GroupID = strconv.FormatInt(msg.Chat.ID, 10)
		chatID, userID := msg.Chat.ID, msg.From.ID
		ev = ev.WithRoleLookup(func() string { return b.role(chatID, userID) })
	} else {
		ev.MessageType = models.MessageTypePrivate
	}
	return ev
}

// role maps the Telegram member status to owner/admin/member, cached per
// chat and user. Only commands that need authorization ask for it.
func (b *Bot) role(chatID, userID int64) string {
	key := roleKey{chatID, userID}
	b.rolesMu.RLock()
	c, ok := b.roles[key]
	b.rolesMu.RUnlock()
	if ok && time.Since(c.at) < roleCacheTTL {
		return c.role
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		b.log.Warnw("get chat member failed", "chat_id", chatID, "user_id", userID, "error", err)
		return models.RoleMember
	}
	role := models.RoleMember
	switch {
	case member.IsCreator():
		role = models.RoleOwner
	case member.IsAdministrator():
		role = models.RoleAdmin
	}

	now := time.Now()
	b.rolesMu.Lock()
	for k, c := range b.roles {
		if now.Sub(c.at) >= roleCacheTTL {
			delete(b.roles, k)
		}
	}
	b.roles[key] = cachedRole{role: role, at: now}
	b.rolesMu.Unlock()
	return role
}

func (b *Bot) SendGroup(_ context.Context, groupID, replyTo, text string) error {
	return b.send(groupID, replyTo, text)
}

func (b *Bot) SendPrivate(_ context.Context, userID, replyTo, text string) error {
	return b.send(userID, replyTo, text)
}

func (b *Bot) send(chat, replyTo, text string) error {
	chatID, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", chat, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != "" {
		if id, err := strconv.Atoi(replyTo); err == nil {
			msg.ReplyToMessageID = id
		}
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
