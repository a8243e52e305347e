package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"telegram-channel-scraper/internal/domain"
)

func testChannel() domain.Channel {
	return domain.Channel{
		Username: "shop",
		ID:       777,
		Title:    "Shop",
		Ref:      &tg.InputPeerChannel{ChannelID: 777, AccessHash: 42},
	}
}

func channelMessages(msgs ...tg.MessageClass) *tg.MessagesChannelMessages {
	return &tg.MessagesChannelMessages{
		Messages: msgs,
		Users: []tg.UserClass{
			&tg.User{ID: 10, Username: "seller"},
			&tg.User{ID: 11, FirstName: "Abebe", LastName: "Kebede"},
		},
		Chats: []tg.ChatClass{
			&tg.Channel{ID: 777, Title: "Shop", Username: "shop"},
		},
	}
}

func TestClient_ResolveChannel(t *testing.T) {
	ctx := context.Background()

	t.Run("канал найден", func(t *testing.T) {
		client, runner, _, _ := newTestClient(t)
		runner.api.On("ContactsResolveUsername", ctx, &tg.ContactsResolveUsernameRequest{Username: "shop"}).
			Return(&tg.ContactsResolvedPeer{
				Peer:  &tg.PeerChannel{ChannelID: 777},
				Chats: []tg.ChatClass{&tg.Channel{ID: 777, AccessHash: 42, Title: "Shop", Username: "Shop"}},
			}, nil).Once()

		ch, err := client.ResolveChannel(ctx, "shop")
		require.NoError(t, err)
		assert.Equal(t, "Shop", ch.Username)
		assert.Equal(t, int64(777), ch.ID)
		assert.Equal(t, "Shop", ch.Title)
		assert.Equal(t, &tg.InputPeerChannel{ChannelID: 777, AccessHash: 42}, ch.Ref)
		runner.api.AssertExpectations(t)
	})

	t.Run("ошибка API", func(t *testing.T) {
		client, runner, _, _ := newTestClient(t)
		runner.api.On("ContactsResolveUsername", ctx, mock.Anything).
			Return(nil, errors.New("USERNAME_NOT_OCCUPIED")).Once()

		_, err := client.ResolveChannel(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrChannelResolution)
		assert.ErrorContains(t, err, "USERNAME_NOT_OCCUPIED")
	})

	t.Run("пользователь вместо канала", func(t *testing.T) {
		client, runner, _, _ := newTestClient(t)
		runner.api.On("ContactsResolveUsername", ctx, mock.Anything).
			Return(&tg.ContactsResolvedPeer{Peer: &tg.PeerUser{UserID: 1}}, nil).Once()

		_, err := client.ResolveChannel(ctx, "someone")
		require.ErrorIs(t, err, domain.ErrChannelResolution)
	})
}

func TestClient_IterateMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("преобразование сообщений", func(t *testing.T) {
		client, runner, _, _ := newTestClient(t)
		photo := &tg.Photo{ID: 5, AccessHash: 6, Sizes: []tg.PhotoSizeClass{&tg.PhotoSize{Type: "x", W: 800, H: 600}}}

		withUser := &tg.Message{ID: 3, Message: "ዋጋ 100 ብር", Date: 1700000000}
		withUser.SetFromID(&tg.PeerUser{UserID: 10})
		withUser.SetMedia(&tg.MessageMediaPhoto{Photo: photo})

		named := &tg.Message{ID: 2, Message: "hello"}
		named.SetFromID(&tg.PeerUser{UserID: 11})

		post := &tg.Message{ID: 1, Message: "post", Date: 1700000100}

		runner.api.On("MessagesGetHistory", ctx, mock.Anything).
			Return(channelMessages(withUser, named, post), nil).Once()

		it := client.IterateMessages(ctx, testChannel(), 3)
		var got []domain.Message
		for it.Next(ctx) {
			got = append(got, it.Value())
		}
		require.NoError(t, it.Err())
		require.Len(t, got, 3)

		assert.Equal(t, 3, got[0].ID)
		assert.Equal(t, "ዋጋ 100 ብር", got[0].Text)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), got[0].Date)
		assert.Equal(t, int64(10), got[0].SenderID)
		assert.Equal(t, "seller", got[0].SenderName)
		require.True(t, got[0].Media.IsPhoto())
		assert.Same(t, photo, got[0].Media.Ref)

		assert.Equal(t, "Abebe Kebede", got[1].SenderName)
		assert.True(t, got[1].Date.IsZero())
		assert.Nil(t, got[1].Media)

		// Пост без автора принадлежит каналу
		assert.Equal(t, int64(777), got[2].SenderID)
		assert.Equal(t, "shop", got[2].SenderName)
	})

	t.Run("постраничная загрузка", func(t *testing.T) {
		client, runner, _, _ := newTestClient(t)
		WithHistoryBatchSize(2)(client)

		runner.api.On("MessagesGetHistory", ctx, mock.MatchedBy(func(r *tg.MessagesGetHistoryRequest) bool {
			return r.OffsetID == 0 && r.Limit == 2
		})).Return(channelMessages(&tg.Message{ID: 10}, &tg.Message{ID: 9}), nil).Once()
		runner.api.On("MessagesGetHistory", ctx, mock.MatchedBy(func(r *tg.MessagesGetHistoryRequest) bool {
			return r.OffsetID == 9 && r.Limit == 1
		})).Return(channelMessages(&tg.Message{ID: 8}), nil).Once()

		it := client.IterateMessages(ctx, testChannel(), 3)
		var ids []int
		for it.Next(ctx) {
			ids = append(ids, it.Value().ID)
		}
		require.NoError(t, it.Err())
		assert.Equal(t, []int{10, 9, 8}, ids)
		runner.api.AssertExpectations(t)
	})

	t.Run("история короче лимита", func(t *testing.T) {
		client, runner, _, _ := newTestClient(t)
		runner.api.On("MessagesGetHistory", ctx, mock.Anything).
			Return(channelMessages(&tg.Message{ID: 2}, &tg.MessageService{ID: 1}), nil).Once()

		it := client.IterateMessages(ctx, testChannel(), 50)
		var got []domain.Message
		for it.Next(ctx) {
			got = append(got, it.Value())
		}
		require.NoError(t, it.Err())
		require.Len(t, got, 2)
		assert.Empty(t, got[1].Text)
		runner.api.AssertNumberOfCalls(t, "MessagesGetHistory", 1)
	})

	t.Run("ошибка загрузки", func(t *testing.T) {
		client, runner, _, _ := newTestClient(t)
		runner.api.On("MessagesGetHistory", ctx, mock.Anything).Return(nil, errors.New("CHANNEL_PRIVATE")).Once()

		it := client.IterateMessages(ctx, testChannel(), 10)
		assert.False(t, it.Next(ctx))
		assert.ErrorContains(t, it.Err(), "CHANNEL_PRIVATE")
	})
}

func TestClient_DownloadMedia(t *testing.T) {
	ctx := context.Background()
	photo := &tg.Photo{
		ID:            5,
		AccessHash:    6,
		FileReference: []byte{1, 2},
		Sizes: []tg.PhotoSizeClass{
			&tg.PhotoSize{Type: "m", W: 320, H: 240},
			&tg.PhotoSizeProgressive{Type: "y", W: 1280, H: 960},
			&tg.PhotoSize{Type: "x", W: 800, H: 600},
		},
	}

	t.Run("выбирается наибольший размер", func(t *testing.T) {
		client, runner, _, _ := newTestClient(t)
		want := &tg.InputPhotoFileLocation{ID: 5, AccessHash: 6, FileReference: []byte{1, 2}, ThumbSize: "y"}
		runner.On("Download", ctx, want, "media/shop_3.jpg").Return(nil).Once()

		err := client.DownloadMedia(ctx, &domain.Media{Type: domain.MediaPhoto, Ref: photo}, "media/shop_3.jpg")
		require.NoError(t, err)
		runner.AssertExpectations(t)
	})

	t.Run("ошибка скачивания", func(t *testing.T) {
		client, runner, _, _ := newTestClient(t)
		runner.On("Download", ctx, mock.Anything, mock.Anything).Return(errors.New("FILE_REFERENCE_EXPIRED")).Once()

		err := client.DownloadMedia(ctx, &domain.Media{Type: domain.MediaPhoto, Ref: photo}, "x.jpg")
		require.ErrorIs(t, err, domain.ErrMediaDownload)
	})

	t.Run("не фото", func(t *testing.T) {
		client, _, _, _ := newTestClient(t)
		err := client.DownloadMedia(ctx, nil, "x.jpg")
		require.ErrorIs(t, err, domain.ErrMediaDownload)
	})
}
