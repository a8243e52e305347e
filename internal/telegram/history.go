package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"telegram-channel-scraper/internal/domain"
	"telegram-channel-scraper/internal/ports"
)

// maxHistoryBatch — максимум сообщений в одном ответе messages.getHistory.
const maxHistoryBatch = 100

// IterateMessages возвращает итератор по истории канала от новых сообщений к старым.
// Страницы запрашиваются лениво, по мере вызова Next.
func (c *Client) IterateMessages(_ context.Context, channel domain.Channel, limit int) ports.MessageIterator {
	return &historyIterator{
		client:  c,
		channel: channel,
		limit:   limit,
	}
}

type historyIterator struct {
	client  *Client
	channel domain.Channel

	limit    int
	fetched  int
	offsetID int
	buf      []domain.Message
	cur      domain.Message
	done     bool
	err      error
}

func (it *historyIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for len(it.buf) == 0 {
		if it.done || it.fetched >= it.limit {
			return false
		}
		if err := it.fetch(ctx); err != nil {
			it.err = err
			return false
		}
	}
	it.cur = it.buf[0]
	it.buf = it.buf[1:]
	return true
}

func (it *historyIterator) Value() domain.Message {
	return it.cur
}

func (it *historyIterator) Err() error {
	return it.err
}

// fetch загружает следующую страницу истории.
func (it *historyIterator) fetch(ctx context.Context) error {
	peer, ok := it.channel.Ref.(tg.InputPeerClass)
	if !ok {
		return fmt.Errorf("channel %s has no input peer", it.channel.Username)
	}

	want := min(it.client.batchSize, it.limit-it.fetched)

	var res tg.MessagesMessagesClass
	err := it.client.do(ctx, func(ctx context.Context) error {
		var err error
		res, err = it.client.tgRunner.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			OffsetID: it.offsetID,
			Limit:    want,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to get history of %s: %w", it.channel.Username, err)
	}

	var (
		raw   []tg.MessageClass
		users []tg.UserClass
		chats []tg.ChatClass
	)
	switch r := res.(type) {
	case *tg.MessagesMessages:
		raw, users, chats = r.Messages, r.Users, r.Chats
	case *tg.MessagesMessagesSlice:
		raw, users, chats = r.Messages, r.Users, r.Chats
	case *tg.MessagesChannelMessages:
		raw, users, chats = r.Messages, r.Users, r.Chats
	case *tg.MessagesMessagesNotModified:
		it.done = true
		return nil
	default:
		return fmt.Errorf("unexpected history response %T", res)
	}

	if len(raw) < want {
		it.done = true
	}
	if len(raw) == 0 {
		it.done = true
		return nil
	}

	senders := newSenderIndex(users, chats)
	for _, m := range raw {
		if it.fetched >= it.limit {
			break
		}
		if id := m.GetID(); it.offsetID == 0 || id < it.offsetID {
			it.offsetID = id
		}
		msg, ok := convertMessage(m, it.channel, senders)
		if !ok {
			continue
		}
		it.fetched++
		it.buf = append(it.buf, msg)
	}
	return nil
}

// senderIndex сопоставляет идентификаторы пиров с их отображаемыми именами.
type senderIndex struct {
	users map[int64]*tg.User
	chats map[int64]string
}

func newSenderIndex(users []tg.UserClass, chats []tg.ChatClass) senderIndex {
	idx := senderIndex{
		users: make(map[int64]*tg.User, len(users)),
		chats: make(map[int64]string, len(chats)),
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			idx.users[user.ID] = user
		}
	}
	for _, ch := range chats {
		switch c := ch.(type) {
		case *tg.Channel:
			if c.Username != "" {
				idx.chats[c.ID] = c.Username
			} else {
				idx.chats[c.ID] = c.Title
			}
		case *tg.Chat:
			idx.chats[c.ID] = c.Title
		}
	}
	return idx
}

// sender возвращает идентификатор и имя автора. Посты без автора принадлежат самому каналу.
func (idx senderIndex) sender(from tg.PeerClass, hasFrom bool, channel domain.Channel) (int64, string) {
	if !hasFrom || from == nil {
		return channel.ID, channel.Username
	}
	switch p := from.(type) {
	case *tg.PeerUser:
		u, ok := idx.users[p.UserID]
		if !ok {
			return p.UserID, ""
		}
		if u.Username != "" {
			return p.UserID, u.Username
		}
		return p.UserID, strings.TrimSpace(u.FirstName + " " + u.LastName)
	case *tg.PeerChannel:
		return p.ChannelID, idx.chats[p.ChannelID]
	case *tg.PeerChat:
		return p.ChatID, idx.chats[p.ChatID]
	}
	return 0, ""
}

// convertMessage преобразует сообщение API в доменную модель.
// Пустые сообщения пропускаются, служебные попадают в выгрузку без текста.
func convertMessage(m tg.MessageClass, channel domain.Channel, senders senderIndex) (domain.Message, bool) {
	switch msg := m.(type) {
	case *tg.Message:
		from, hasFrom := msg.GetFromID()
		out := domain.Message{
			ID:   msg.ID,
			Text: msg.Message,
			Date: unixDate(msg.Date),
		}
		out.SenderID, out.SenderName = senders.sender(from, hasFrom, channel)
		if media, ok := msg.GetMedia(); ok {
			out.Media = convertMedia(media)
		}
		return out, true
	case *tg.MessageService:
		from, hasFrom := msg.GetFromID()
		out := domain.Message{
			ID:   msg.ID,
			Date: unixDate(msg.Date),
		}
		out.SenderID, out.SenderName = senders.sender(from, hasFrom, channel)
		return out, true
	default:
		return domain.Message{}, false
	}
}

func convertMedia(media tg.MessageMediaClass) *domain.Media {
	mp, ok := media.(*tg.MessageMediaPhoto)
	if !ok {
		return nil
	}
	photo, ok := mp.GetPhoto()
	if !ok {
		return nil
	}
	p, ok := photo.(*tg.Photo)
	if !ok {
		return nil
	}
	return &domain.Media{Type: domain.MediaPhoto, Ref: p}
}

func unixDate(ts int) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(ts), 0).UTC()
}
