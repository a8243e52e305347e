package domain

import "errors"

var (
	// ErrAuthentication — неверные или отсутствующие учетные данные, запуск прерывается до обработки каналов.
	ErrAuthentication = errors.New("authentication failed")
	// ErrChannelResolution — канал не существует или недоступен.
	ErrChannelResolution = errors.New("channel resolution failed")
	// ErrMediaDownload — не удалось скачать вложение.
	ErrMediaDownload = errors.New("media download failed")
	// ErrInvalidRequest — параметры запуска некорректны.
	ErrInvalidRequest = errors.New("invalid scrape request")
)
