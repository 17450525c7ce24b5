package session

import "sync"

// Store хранит сессии чатов в памяти процесса. На диск ничего не пишется.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get возвращает сессию чата, создавая пустую при первом обращении.
func (s *Store) Get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		sess = New(chatID)
		s.sessions[chatID] = sess
	}
	return sess
}
