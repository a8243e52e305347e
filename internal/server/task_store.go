package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telegram-channel-scraper/internal/domain"
)

// TaskStatus представляет статус задачи выгрузки
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task представляет собой одну задачу выгрузки
type Task struct {
	ID           string
	Status       TaskStatus
	ResultPath   string
	Summary      *domain.RunSummary
	Cached       bool
	ErrorMessage string
	CreatedAt    time.Time
	ExpiresAt    time.Time // Для автоматической очистки
}

// TaskStore управляет хранением и извлечением задач
type TaskStore struct {
	tasks map[string]*Task
	mutex sync.RWMutex
	now   func() time.Time
	// onExpire вызывается для каждой удаленной задачи вне блокировки
	onExpire func(Task)
}

// NewTaskStore создает новый экземпляр TaskStore
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

// OnExpire задает обработчик удаления просроченных задач.
func (ts *TaskStore) OnExpire(f func(Task)) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	ts.onExpire = f
}

// CreateTask создает новую задачу со статусом 'pending'
func (ts *TaskStore) CreateTask(taskID string, ttl time.Duration) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := ts.now()
	ts.tasks[taskID] = &Task{
		ID:        taskID,
		Status:    TaskStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// UpdateTaskStatus обновляет статус задачи
func (ts *TaskStore) UpdateTaskStatus(taskID string, status TaskStatus) error {
	return ts.update(taskID, func(task *Task) {
		task.Status = status
	})
}

// UpdateTaskResult сохраняет результат и переводит задачу в 'completed'
func (ts *TaskStore) UpdateTaskResult(taskID, resultPath string, summary *domain.RunSummary, cached bool) error {
	return ts.update(taskID, func(task *Task) {
		task.Status = TaskStatusCompleted
		task.ResultPath = resultPath
		task.Summary = summary
		task.Cached = cached
	})
}

// UpdateTaskError сохраняет сообщение об ошибке и переводит задачу в 'failed'
func (ts *TaskStore) UpdateTaskError(taskID string, errorMessage string) error {
	return ts.update(taskID, func(task *Task) {
		task.Status = TaskStatusFailed
		task.ErrorMessage = errorMessage
	})
}

func (ts *TaskStore) update(taskID string, f func(*Task)) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return fmt.Errorf("задача с ID %s не найдена", taskID)
	}
	f(task)
	return nil
}

// GetTask возвращает копию задачи по ее ID
func (ts *TaskStore) GetTask(taskID string) (Task, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return Task{}, fmt.Errorf("задача с ID %s не найдена", taskID)
	}

	return *task, nil
}

// CleanupExpired удаляет просроченные задачи из хранилища
func (ts *TaskStore) CleanupExpired() {
	ts.mutex.Lock()
	now := ts.now()
	var expired []Task
	for taskID, task := range ts.tasks {
		if now.After(task.ExpiresAt) {
			expired = append(expired, *task)
			delete(ts.tasks, taskID)
		}
	}
	onExpire := ts.onExpire
	ts.mutex.Unlock()

	if onExpire != nil {
		for _, task := range expired {
			onExpire(task)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных задач
func (ts *TaskStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts.CleanupExpired()
			}
		}
	}()
}
