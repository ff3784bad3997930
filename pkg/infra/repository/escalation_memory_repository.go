package repository

import (
	"context"
	"sync"

	"github.com/perspectron/perspectron/pkg/domain"
	"github.com/perspectron/perspectron/pkg/domain/moderation"
)

// MemoryEscalationRepository keeps open reports in process memory. The mutex
// doubles as the single-assignment guard for the terminal action.
type MemoryEscalationRepository struct {
	mu      sync.Mutex
	records map[string]*moderation.EscalationRecord
}

func NewMemoryEscalationRepository() *MemoryEscalationRepository {
	return &MemoryEscalationRepository{records: make(map[string]*moderation.EscalationRecord)}
}

var _ moderation.Repository = (*MemoryEscalationRepository)(nil)

func (r *MemoryEscalationRepository) Save(ctx context.Context, record *moderation.EscalationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ReportMessageID] = record
	return nil
}

func (r *MemoryEscalationRepository) FindByReportMessageID(ctx context.Context, reportMessageID string) (*moderation.EscalationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[reportMessageID]
	if !ok {
		return nil, domain.ErrResolutionTargetNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *MemoryEscalationRepository) MarkResolved(ctx context.Context, reportMessageID string, action moderation.Action) (*moderation.EscalationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[reportMessageID]
	if !ok {
		return nil, domain.ErrResolutionTargetNotFound
	}
	if err := record.Resolve(action); err != nil {
		return nil, err
	}
	copied := *record
	return &copied, nil
}
