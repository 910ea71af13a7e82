package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldline/intakeflow/internal/config"
	"github.com/fieldline/intakeflow/internal/domain"
	"github.com/fieldline/intakeflow/internal/enrich"
	"github.com/fieldline/intakeflow/internal/nlp"
	"github.com/fieldline/intakeflow/internal/repository"
	"github.com/fieldline/intakeflow/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// IntakeService drives the intake session lifecycle. All mutating operations
// on one session are serialized behind a per-session lock; calls into the NLP
// backend are capped by a weighted semaphore sized to the backend's
// concurrency limits.
type IntakeService struct {
	store    repository.Store
	blobs    storage.BlobStore
	backend  nlp.Backend
	enricher enrich.Enricher
	locks    *sessionLocks
	inflight *semaphore.Weighted
}

func NewIntakeService(store repository.Store, blobs storage.BlobStore, backend nlp.Backend, enricher enrich.Enricher, backendConcurrency int64) *IntakeService {
	if backendConcurrency <= 0 {
		backendConcurrency = 1
	}
	return &IntakeService{
		store:    store,
		blobs:    blobs,
		backend:  backend,
		enricher: enricher,
		locks:    newSessionLocks(),
		inflight: semaphore.NewWeighted(backendConcurrency),
	}
}

// TurnResult is what a conversation round trip hands back to the caller.
type TurnResult struct {
	Session    *domain.IntakeSession
	Reply      string
	IsComplete bool
}

// Start creates a Draft session seeded with the backend's opening prompt.
func (s *IntakeService) Start(ctx context.Context, ownerID string) (*domain.IntakeSession, error) {
	res, err := s.extract(ctx, nil, "", domain.IntakeFields{})
	if err != nil {
		return nil, err
	}

	session := domain.NewIntakeSession(uuid.NewString(), ownerID, res.Reply, time.Now().UTC())
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("intake session started", "session_id", session.ID, "owner_id", ownerID)
	return session, nil
}

// Turn advances the conversation by one user message. The backend round trip
// happens before any state is touched, so a failed call leaves the session
// exactly as it was.
func (s *IntakeService) Turn(ctx context.Context, sessionID, userText string) (*TurnResult, error) {
	defer s.locks.acquire(sessionID)()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.StatusDraft {
		return nil, fmt.Errorf("%w: cannot converse on %s session %s", domain.ErrInvalidState, session.Status, sessionID)
	}

	res, err := s.extract(ctx, session.Transcript, userText, session.Fields)
	if err != nil {
		return nil, err
	}

	if err := session.AppendExchange(userText, res.Reply, res.Fields, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &TurnResult{Session: session, Reply: res.Reply, IsComplete: res.IsComplete}, nil
}

// Submit finalizes the draft with the caller's field values.
func (s *IntakeService) Submit(ctx context.Context, sessionID string, final domain.IntakeFields) (*domain.IntakeSession, error) {
	defer s.locks.acquire(sessionID)()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.Submit(final, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	slog.Info("intake session submitted", "session_id", sessionID, "title", session.Fields.Title)
	return session, nil
}

// AddAttachment stores the raw bytes and registers the attachment on the
// session.
func (s *IntakeService) AddAttachment(ctx context.Context, sessionID, fileName, declaredType string, data []byte) (*domain.Attachment, error) {
	if len(data) == 0 || len(data) > config.MaxAttachmentBytes {
		return nil, fmt.Errorf("%w: attachment must be between 1 byte and %d bytes", domain.ErrValidationFailed, config.MaxAttachmentBytes)
	}
	attType := domain.InferAttachmentType(fileName)
	if declaredType != "" {
		var err error
		if attType, err = domain.ParseAttachmentType(declaredType); err != nil {
			return nil, err
		}
	}

	defer s.locks.acquire(sessionID)()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.StatusPromoted {
		return nil, fmt.Errorf("%w: cannot attach to promoted session %s", domain.ErrInvalidState, sessionID)
	}

	locator, err := s.blobs.Store(ctx, sessionID, fileName, data)
	if err != nil {
		return nil, fmt.Errorf("%w: store attachment: %v", domain.ErrBackendFailure, err)
	}

	att := domain.Attachment{
		ID:             uuid.NewString(),
		OwnerSessionID: sessionID,
		FileName:       fileName,
		DeclaredType:   attType,
		StorageLocator: locator,
		SizeBytes:      int64(len(data)),
	}
	if err := session.AddAttachment(att, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &att, nil
}

// EnrichAttachment runs the configured enricher over a stored attachment and
// records the extracted text. The text can be set only once.
func (s *IntakeService) EnrichAttachment(ctx context.Context, sessionID, attachmentID string) (*domain.Attachment, error) {
	defer s.locks.acquire(sessionID)()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	att, err := session.Attachment(attachmentID)
	if err != nil {
		return nil, err
	}
	if att.EnrichedText != "" {
		return nil, fmt.Errorf("%w: attachment %s already enriched", domain.ErrInvalidState, attachmentID)
	}

	text, err := s.enricher.Enrich(ctx, att.StorageLocator, att.FileName)
	if err != nil {
		return nil, err
	}
	if err := att.SetEnrichedText(text); err != nil {
		return nil, err
	}
	session.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return att, nil
}

// Analyse synthesizes the brief, checkpoints and actionables for a session
// and moves it to Analysed. A backend failure leaves the session untouched.
func (s *IntakeService) Analyse(ctx context.Context, sessionID string) (*domain.IntakeSession, error) {
	defer s.locks.acquire(sessionID)()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.StatusPromoted {
		return nil, fmt.Errorf("%w: cannot analyse promoted session %s", domain.ErrInvalidState, sessionID)
	}

	texts := analysisDocuments(session)
	if err := s.inflight.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendFailure, err)
	}
	synthesis, err := s.backend.Synthesize(ctx, session.Fields.Title, session.Fields.Description, texts)
	s.inflight.Release(1)
	if err != nil {
		return nil, fmt.Errorf("synthesize analysis: %w", err)
	}

	if err := session.SetAnalysis(synthesis.Brief, synthesis.Checkpoints, synthesis.Actionables, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	slog.Info("intake session analysed", "session_id", sessionID, "checkpoints", len(synthesis.Checkpoints))
	return session, nil
}

// Promote converts an Analysed session into a process record. The record, its
// attachment copies and the session's terminal state are written atomically;
// a second call fails with ErrInvalidState instead of creating a duplicate.
func (s *IntakeService) Promote(ctx context.Context, sessionID string) (*domain.ProcessRecord, error) {
	defer s.locks.acquire(sessionID)()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rec := domain.BuildProcessRecord(session, uuid.NewString(), uuid.NewString, time.Now().UTC())
	if err := session.MarkPromoted(rec.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.PromoteSession(ctx, session, &rec); err != nil {
		return nil, fmt.Errorf("promote session: %w", err)
	}
	slog.Info("intake session promoted", "session_id", sessionID, "process_id", rec.ID)
	return &rec, nil
}

// Get returns the full session aggregate.
func (s *IntakeService) Get(ctx context.Context, sessionID string) (*domain.IntakeSession, error) {
	return s.store.GetSession(ctx, sessionID)
}

// ListByOwner returns a page of the owner's sessions, newest first.
func (s *IntakeService) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.IntakeSession, error) {
	if limit <= 0 || limit > config.SessionsPerPage {
		limit = config.SessionsPerPage
	}
	return s.store.ListSessionsByOwner(ctx, ownerID, limit, offset)
}

// GetProcess returns a promoted process record.
func (s *IntakeService) GetProcess(ctx context.Context, processID string) (*domain.ProcessRecord, error) {
	return s.store.GetProcess(ctx, processID)
}

func (s *IntakeService) extract(ctx context.Context, transcript []domain.ChatTurn, userText string, current domain.IntakeFields) (nlp.ExtractResult, error) {
	if err := s.inflight.Acquire(ctx, 1); err != nil {
		return nlp.ExtractResult{}, fmt.Errorf("%w: %v", domain.ErrBackendFailure, err)
	}
	defer s.inflight.Release(1)

	res, err := s.backend.Extract(ctx, transcript, userText, current)
	if err != nil {
		return nlp.ExtractResult{}, fmt.Errorf("extract fields: %w", err)
	}
	return res, nil
}

// analysisDocuments collects attachment texts for synthesis, preferring
// enriched text and falling back to the bare filename as a weak signal.
func analysisDocuments(session *domain.IntakeSession) []string {
	var texts []string
	for _, a := range session.Attachments {
		if len(texts) >= config.MaxAnalysisDocuments {
			break
		}
		text := a.EnrichedText
		if text == "" {
			text = a.FileName
		}
		if len(text) > config.MaxAnalysisDocumentLen {
			text = text[:config.MaxAnalysisDocumentLen]
		}
		texts = append(texts, text)
	}
	return texts
}
