package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"

	"telegram-channel-scraper/internal/domain"
)

// ResolveChannel находит публичный канал по username.
func (c *Client) ResolveChannel(ctx context.Context, username string) (domain.Channel, error) {
	var resolved *tg.ContactsResolvedPeer
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		resolved, err = c.tgRunner.API().ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
		return err
	})
	if err != nil {
		return domain.Channel{}, fmt.Errorf("%w: %s: %w", domain.ErrChannelResolution, username, err)
	}

	peer, ok := resolved.Peer.(*tg.PeerChannel)
	if !ok {
		return domain.Channel{}, fmt.Errorf("%w: %s is not a channel", domain.ErrChannelResolution, username)
	}

	for _, chat := range resolved.Chats {
		ch, ok := chat.(*tg.Channel)
		if !ok || ch.ID != peer.ChannelID {
			continue
		}
		name := ch.Username
		if name == "" {
			name = username
		}
		return domain.Channel{
			Username: name,
			ID:       ch.ID,
			Title:    ch.Title,
			Ref:      &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash},
		}, nil
	}

	return domain.Channel{}, fmt.Errorf("%w: %s: channel %d missing in response", domain.ErrChannelResolution, username, peer.ChannelID)
}

// DownloadMedia сохраняет фото в максимальном доступном размере.
func (c *Client) DownloadMedia(ctx context.Context, media *domain.Media, path string) error {
	if !media.IsPhoto() {
		return fmt.Errorf("%w: unsupported media", domain.ErrMediaDownload)
	}
	photo, ok := media.Ref.(*tg.Photo)
	if !ok {
		return fmt.Errorf("%w: unexpected media reference %T", domain.ErrMediaDownload, media.Ref)
	}
	loc, err := photoLocation(photo)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMediaDownload, err)
	}

	err = c.do(ctx, func(ctx context.Context) error {
		return c.tgRunner.Download(ctx, loc, path)
	})
	if err != nil {
		return fmt.Errorf("%w: photo %d to %s: %w", domain.ErrMediaDownload, photo.ID, path, err)
	}
	c.log.DebugContext(ctx, "Photo downloaded", "photo_id", photo.ID, "path", path)
	return nil
}

// photoLocation выбирает самый большой размер фото.
func photoLocation(photo *tg.Photo) (*tg.InputPhotoFileLocation, error) {
	bestType := ""
	bestArea := -1
	for _, size := range photo.Sizes {
		var typ string
		var area int
		switch s := size.(type) {
		case *tg.PhotoSize:
			typ, area = s.Type, s.W*s.H
		case *tg.PhotoSizeProgressive:
			typ, area = s.Type, s.W*s.H
		default:
			continue
		}
		if area > bestArea {
			bestType, bestArea = typ, area
		}
	}
	if bestType == "" {
		return nil, fmt.Errorf("photo %d has no downloadable sizes", photo.ID)
	}

	return &tg.InputPhotoFileLocation{
		ID:            photo.ID,
		AccessHash:    photo.AccessHash,
		FileReference: photo.FileReference,
		ThumbSize:     bestType,
	}, nil
}
