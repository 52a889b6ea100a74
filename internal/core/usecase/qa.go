package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// QAService runs question answering sessions: load and index on open, then
// retrieve, compose and cite on every question.
type QAService struct {
	source    *DocumentSource
	builder   *IndexBuilder
	retriever *Retriever
	composer  *AnswerComposer
	citations *CitationResolver
	sessions  *SessionRegistry
	topK      int
	now       func() time.Time
}

func NewQAService(
	source *DocumentSource,
	builder *IndexBuilder,
	retriever *Retriever,
	composer *AnswerComposer,
	citations *CitationResolver,
	sessions *SessionRegistry,
	topK int,
) *QAService {
	if sessions == nil {
		sessions = NewSessionRegistry()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &QAService{
		source:    source,
		builder:   builder,
		retriever: retriever,
		composer:  composer,
		citations: citations,
		sessions:  sessions,
		topK:      topK,
		now:       time.Now,
	}
}

// Open loads the documents bucket and builds a fresh index. A session that
// could not load anything is still opened, with status empty and a notice.
func (s *QAService) Open(ctx context.Context) (domain.SessionInfo, error) {
	info := domain.SessionInfo{
		ID:        uuid.NewString(),
		Status:    domain.SessionEmpty,
		CreatedAt: s.now().UTC(),
	}

	var index *Index
	records, err := s.source.ListAndLoad(ctx)
	switch {
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.SessionInfo{}, ctxErr
		}
		slog.Warn("qa_documents_load_failed", "session_id", info.ID, "error", err)
		info.Notice = fmt.Sprintf("documents could not be loaded: %v", err)
	case len(records) == 0:
		info.Notice = "no PDF documents found"
	default:
		index, err = s.builder.Build(ctx, records)
		if err != nil {
			if !domain.IsKind(err, domain.ErrNoDocuments) {
				return domain.SessionInfo{}, fmt.Errorf("open session: %w", err)
			}
			info.Notice = "no PDF pages with text found"
		} else {
			info.Status = domain.SessionReady
			info.Records = index.Len()
			info.Sources = index.Sources()
		}
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	s.sessions.put(&qaSession{
		info:   info,
		index:  index,
		ctx:    sessionCtx,
		cancel: cancel,
	})

	slog.Info("qa_session_opened",
		"session_id", info.ID,
		"status", info.Status,
		"records", info.Records,
		"sources", info.Sources,
	)
	return info, nil
}

func (s *QAService) Get(id string) (domain.SessionInfo, error) {
	session, ok := s.sessions.lookup(id)
	if !ok {
		return domain.SessionInfo{}, sessionNotFound(id)
	}
	return session.info, nil
}

// Ask answers question against the session's index. Closing the session
// cancels the call and discards its result.
func (s *QAService) Ask(ctx context.Context, id, question string) (*domain.Answer, error) {
	session, ok := s.sessions.lookup(id)
	if !ok {
		return nil, sessionNotFound(id)
	}
	if session.info.Status != domain.SessionReady {
		return nil, domain.WrapError(domain.ErrNoDocuments, "ask", fmt.Errorf("session %s has no indexed documents", id))
	}

	askCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(session.ctx, cancel)
	defer stop()

	answer, err := s.answer(askCtx, session.index, question)
	if session.ctx.Err() != nil {
		return nil, domain.WrapError(domain.ErrNotFound, "ask", fmt.Errorf("session %s was closed", id))
	}
	if err != nil {
		return nil, err
	}
	return answer, nil
}

func (s *QAService) answer(ctx context.Context, index *Index, question string) (*domain.Answer, error) {
	records, err := s.retriever.Search(ctx, index, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	text, err := s.composer.Compose(ctx, question, records)
	if err != nil {
		return nil, err
	}

	citations, err := s.citations.Cite(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("cite sources: %w", err)
	}

	return &domain.Answer{
		Query:     question,
		Text:      text,
		Citations: citations,
		Sources:   records,
	}, nil
}

func (s *QAService) Close(id string) error {
	session, ok := s.sessions.remove(id)
	if !ok {
		return sessionNotFound(id)
	}
	session.release()
	slog.Info("qa_session_closed", "session_id", id)
	return nil
}

func sessionNotFound(id string) error {
	return domain.WrapError(domain.ErrNotFound, "find session", errors.New("unknown session "+id))
}
