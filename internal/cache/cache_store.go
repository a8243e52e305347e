package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"telegram-channel-scraper/internal/domain"
)

// CacheItem представляет кэшированный результат запуска
type CacheItem struct {
	ResultPath string
	Summary    *domain.RunSummary
	ExpiresAt  time.Time
}

// CacheStore хранит результаты запусков по хешу запроса
type CacheStore struct {
	cache map[string]*CacheItem
	mutex sync.RWMutex
	now   func() time.Time
}

// NewCacheStore создает новый экземпляр CacheStore
func NewCacheStore() *CacheStore {
	return &CacheStore{
		cache: make(map[string]*CacheItem),
		now:   time.Now,
	}
}

// Get извлекает кэшированный элемент по его ключу (хешу)
func (cs *CacheStore) Get(key string) (*CacheItem, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	item, exists := cs.cache[key]
	if !exists || cs.now().After(item.ExpiresAt) {
		// Элемент не существует или срок его действия истек
		return nil, false
	}

	return item, true
}

// Put сохраняет результат в кэш с указанным сроком действия
func (cs *CacheStore) Put(key, resultPath string, summary *domain.RunSummary, ttl time.Duration) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.cache[key] = &CacheItem{
		ResultPath: resultPath,
		Summary:    summary,
		ExpiresAt:  cs.now().Add(ttl),
	}
}

// Delete удаляет элемент, например если файл результата пропал
func (cs *CacheStore) Delete(key string) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	delete(cs.cache, key)
}

// CleanupExpired удаляет просроченные элементы и возвращает их количество
func (cs *CacheStore) CleanupExpired() int {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	now := cs.now()
	removed := 0
	for key, item := range cs.cache {
		if now.After(item.ExpiresAt) {
			delete(cs.cache, key)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker запускает таймер для периодической очистки просроченных элементов
func (cs *CacheStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.CleanupExpired()
			}
		}
	}()
}

// CalculateRequestHash вычисляет SHA256 от JSON-представления запроса.
// Запрос должен быть нормализован, иначе эквивалентные запросы дадут разные ключи.
func CalculateRequestHash(req any) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("не удалось сериализовать запрос: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}
