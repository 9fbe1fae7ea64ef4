package capture

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds capture sessions keyed by session ID.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create creates a new capture session and returns its ID.
func (st *Store) Create() string {
	id := uuid.NewString()

	st.mu.Lock()
	st.sessions[id] = NewSession()
	st.mu.Unlock()

	return id
}

// Get retrieves a capture session by ID.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove tears down a capture session, releasing its clips.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}
