package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/logging"
	"github.com/cloo-solutions/secondbrain/internal/pagination"
	"github.com/cloo-solutions/secondbrain/internal/telemetry"
)

// TurnStore persists conversation turns.
type TurnStore interface {
	Append(ctx context.Context, turn domain.ConversationTurn) error
	List(ctx context.Context) ([]domain.ConversationTurn, error)
	Clear(ctx context.Context) error
}

// ConversationLog is the append-only dialogue history. The in-memory slice is
// authoritative; an optional TurnStore receives every change write-through.
type ConversationLog struct {
	mu     sync.Mutex
	turns  []domain.ConversationTurn
	nextID int64
	last   time.Time
	store  TurnStore
	now    func() time.Time
	logger *slog.Logger
}

// NewConversationLog creates an empty log. store may be nil.
func NewConversationLog(store TurnStore) *ConversationLog {
	return &ConversationLog{
		nextID: 1,
		store:  store,
		now:    time.Now,
		logger: logging.NewModuleLogger("conversation"),
	}
}

// Load restores persisted turns. Turns appended before Load that the store
// does not hold as-is are renumbered after the persisted ones and written
// again, so ids and timestamps stay monotonic. Without a store it is a no-op.
func (l *ConversationLog) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	persisted, err := l.store.List(ctx)
	if err != nil {
		return domain.Wrap(ctx, domain.ErrCodeInternalError, "failed to load conversation history", err)
	}

	stored := make(map[int64]domain.ConversationTurn, len(persisted))
	for _, t := range persisted {
		stored[t.ID] = t
		l.advance(t)
	}

	pending := l.turns
	l.turns = persisted
	for _, t := range pending {
		if p, ok := stored[t.ID]; ok && sameTurn(p, t) {
			continue
		}
		t = l.stamp(t)
		l.turns = append(l.turns, t)
		if err := l.store.Append(ctx, t); err != nil {
			l.logger.Error("failed to persist conversation turn", "id", t.ID, "role", t.Role, "error", err)
			telemetry.CaptureError(ctx, err)
		}
	}
	l.logger.Info("conversation history loaded", "turns", len(persisted), "merged", len(l.turns)-len(persisted))
	return nil
}

func (l *ConversationLog) advance(t domain.ConversationTurn) {
	if t.ID >= l.nextID {
		l.nextID = t.ID + 1
	}
	if t.CreatedAt.After(l.last) {
		l.last = t.CreatedAt
	}
}

// stamp assigns the next id and a created_at after every earlier turn. Callers hold mu.
func (l *ConversationLog) stamp(turn domain.ConversationTurn) domain.ConversationTurn {
	ts := l.now().UTC()
	if !ts.After(l.last) {
		ts = l.last.Add(time.Microsecond)
	}
	turn.ID = l.nextID
	turn.CreatedAt = ts
	l.nextID++
	l.last = ts
	return turn
}

func sameTurn(a, b domain.ConversationTurn) bool {
	return a.Role == b.Role && a.Content == b.Content && a.CreatedAt.Equal(b.CreatedAt)
}

// Append stamps turn with the next sequence id and a created_at that is never
// earlier than any previous turn, then records it.
func (l *ConversationLog) Append(ctx context.Context, turn domain.ConversationTurn) (domain.ConversationTurn, error) {
	if err := domain.ValidateConversationTurn(turn); err != nil {
		return domain.ConversationTurn{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	turn = l.stamp(turn)
	l.turns = append(l.turns, turn)

	if l.store != nil {
		if err := l.store.Append(ctx, turn); err != nil {
			l.logger.Error("failed to persist conversation turn", "id", turn.ID, "role", turn.Role, "error", err)
			telemetry.CaptureError(ctx, err)
		}
	}
	return turn, nil
}

// AppendMessage is a convenience for Append(NewConversationTurn(role, content)).
func (l *ConversationLog) AppendMessage(ctx context.Context, role domain.Role, content string) (domain.ConversationTurn, error) {
	return l.Append(ctx, domain.NewConversationTurn(role, content))
}

// All returns every turn, oldest first.
func (l *ConversationLog) All(_ context.Context) []domain.ConversationTurn {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.ConversationTurn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Recent returns up to n of the newest turns, oldest first.
func (l *ConversationLog) Recent(n int) []domain.ConversationTurn {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 {
		return []domain.ConversationTurn{}
	}
	start := len(l.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.ConversationTurn, len(l.turns)-start)
	copy(out, l.turns[start:])
	return out
}

// Page returns turns after cursor in insertion order.
func (l *ConversationLog) Page(ctx context.Context, cursor string, limit int) (*pagination.PageResult[domain.ConversationTurn], error) {
	after, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid history cursor", err)
	}
	page := pagination.Paginate(l.All(ctx), after, limit, func(t domain.ConversationTurn) (int64, time.Time) {
		return t.ID, t.CreatedAt
	})
	return &page, nil
}

func (l *ConversationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// Clear discards every turn at once. Turns appended afterwards start a new
// history; sequence ids keep increasing.
func (l *ConversationLog) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cleared := len(l.turns)
	l.turns = nil
	if l.store != nil {
		if err := l.store.Clear(ctx); err != nil {
			l.logger.Error("failed to clear persisted conversation", "error", err)
			telemetry.CaptureError(ctx, err)
		}
	}
	l.logger.Info("conversation history cleared", "turns", cleared)
}
