package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldline/intakeflow/internal/domain"
)

// MemoryStore is a thread-safe in-memory Store. Aggregates are deep-copied on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*domain.IntakeSession
	processes map[string]*domain.ProcessRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*domain.IntakeSession),
		processes: make(map[string]*domain.ProcessRecord),
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, s *domain.IntakeSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = copySession(s)
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*domain.IntakeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(s), nil
}

func (m *MemoryStore) SaveSession(_ context.Context, s *domain.IntakeSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	m.sessions[s.ID] = copySession(s)
	return nil
}

func (m *MemoryStore) ListSessionsByOwner(_ context.Context, ownerID string, limit, offset int) ([]domain.IntakeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.IntakeSession
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			out = append(out, *copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) PromoteSession(_ context.Context, s *domain.IntakeSession, rec *domain.ProcessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	m.sessions[s.ID] = copySession(s)
	m.processes[rec.ID] = copyProcess(rec)
	return nil
}

func (m *MemoryStore) GetProcess(_ context.Context, id string) (*domain.ProcessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.processes[id]
	if !ok {
		return nil, domain.ErrProcessNotFound
	}
	return copyProcess(rec), nil
}

func copySession(s *domain.IntakeSession) *domain.IntakeSession {
	cp := *s
	cp.Transcript = append([]domain.ChatTurn(nil), s.Transcript...)
	cp.Attachments = append([]domain.Attachment(nil), s.Attachments...)
	cp.AnalysisCheckpoints = append([]string(nil), s.AnalysisCheckpoints...)
	cp.AnalysisActionables = append([]string(nil), s.AnalysisActionables...)
	return &cp
}

func copyProcess(rec *domain.ProcessRecord) *domain.ProcessRecord {
	cp := *rec
	cp.Attachments = append([]domain.ProcessAttachment(nil), rec.Attachments...)
	return &cp
}
