package bot

import "sync"

// TaskStore хранит активную выгрузку каждого чата: не более одной на чат.
type TaskStore struct {
	mu    sync.Mutex
	tasks map[int64]string // map[chatID]taskID, пустой taskID - задача еще не создана на сервере
}

// NewTaskStore создает новый экземпляр TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[int64]string),
	}
}

// Reserve занимает чат под новую выгрузку.
// Возвращает false, если в чате уже есть активная или резервируемая задача.
func (s *TaskStore) Reserve(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.tasks[chatID]; busy {
		return false
	}
	s.tasks[chatID] = ""
	return true
}

// Assign связывает зарезервированный чат с задачей сервера.
func (s *TaskStore) Assign(chatID int64, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[chatID] = taskID
}

// Get возвращает taskID активной задачи чата.
func (s *TaskStore) Get(chatID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	taskID, ok := s.tasks[chatID]
	return taskID, ok
}

// Release освобождает чат.
func (s *TaskStore) Release(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, chatID)
}
