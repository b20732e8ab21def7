package threadsync

import (
	"context"

	"sentinal-threads/internal/events"
	"sentinal-threads/internal/metrics"
	"sentinal-threads/internal/repository"
	"sentinal-threads/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service receives committed thread changes for transmission to the
// account's other devices.
type Service interface {
	Enqueue(ctx context.Context, threadID uuid.UUID, changes events.ChangeSet) error
}

// Gate collects sync requests made during a write transaction and hands
// them to the Service once the transaction commits.
type Gate struct {
	service Service
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewGate(service Service, l *logger.Logger, m *metrics.Metrics) *Gate {
	if l == nil {
		l = logger.GetGlobalLogger()
	}
	return &Gate{service: service, log: l, metrics: m}
}

type pendingKey struct{}

// pending is the per-transaction set, in first-request order.
type pending struct {
	order   []uuid.UUID
	changes map[uuid.UUID]events.ChangeSet
}

// RequestSync records that kind changed on threadID inside tx. Local-only
// kinds are dropped. It reports whether the request was recorded.
func (g *Gate) RequestSync(tx *repository.Tx, threadID uuid.UUID, kind events.ChangeKind) bool {
	if g == nil || tx == nil || !tx.Writable() || !kind.IsSyncRelevant() {
		if g != nil {
			g.metrics.SyncRequested(kind.String(), false)
		}
		return false
	}
	g.metrics.SyncRequested(kind.String(), true)

	p, _ := tx.Local(pendingKey{}).(*pending)
	if p == nil {
		p = &pending{changes: make(map[uuid.UUID]events.ChangeSet)}
		tx.SetLocal(pendingKey{}, p)
		tx.AfterCommit(func(ctx context.Context) { g.flush(ctx, p) })
	}
	if _, ok := p.changes[threadID]; !ok {
		p.order = append(p.order, threadID)
	}
	p.changes[threadID] = p.changes[threadID].With(kind)
	return true
}

// PendingFor returns the changes requested for threadID in tx so far.
func PendingFor(tx *repository.Tx, threadID uuid.UUID) events.ChangeSet {
	if tx == nil {
		return 0
	}
	p, _ := tx.Local(pendingKey{}).(*pending)
	if p == nil {
		return 0
	}
	return p.changes[threadID]
}

func (g *Gate) flush(ctx context.Context, p *pending) {
	// The transaction is already durable; a cancelled request must not
	// stop the hand-off.
	ctx = context.WithoutCancel(ctx)
	for _, id := range p.order {
		changes := p.changes[id]
		if err := g.service.Enqueue(ctx, id, changes); err != nil {
			g.metrics.SyncError("enqueue")
			g.log.Ctx(ctx).Error("sync_enqueue_failed",
				zap.String("thread_id", id.String()),
				zap.String("changes", changes.String()),
				zap.Error(err),
			)
			continue
		}
		g.metrics.SyncEnqueued()
		g.log.Ctx(ctx).Debug("sync_enqueued",
			zap.String("thread_id", id.String()),
			zap.String("changes", changes.String()),
		)
	}
}
