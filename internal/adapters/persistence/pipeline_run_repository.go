package persistence

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/andrescamacho/fishtrack-go/internal/domain/run"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

// GormPipelineRunRepository implements run.Repository using GORM
type GormPipelineRunRepository struct {
	db *gorm.DB
}

// NewGormPipelineRunRepository creates a new GORM pipeline run repository
func NewGormPipelineRunRepository(db *gorm.DB) *GormPipelineRunRepository {
	return &GormPipelineRunRepository{db: db}
}

// LastRun returns the most recently finished completed run of the kind
func (r *GormPipelineRunRepository) LastRun(ctx context.Context, kind run.Kind) (*run.PipelineRun, error) {
	var model PipelineRunModel
	result := r.db.WithContext(ctx).
		Where("kind = ? AND status = ?", string(kind), string(shared.LifecycleStatusCompleted)).
		Order("finished_at DESC").
		First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch last %s run: %w", kind, result.Error)
	}
	return modelToRun(&model), nil
}

// ListRuns returns the latest runs of the kind, newest first
func (r *GormPipelineRunRepository) ListRuns(ctx context.Context, kind run.Kind, limit int) ([]*run.PipelineRun, error) {
	var models []PipelineRunModel
	result := r.db.WithContext(ctx).
		Where("kind = ?", string(kind)).
		Order("started_at DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list %s runs: %w", kind, result.Error)
	}

	runs := make([]*run.PipelineRun, 0, len(models))
	for i := range models {
		runs = append(runs, modelToRun(&models[i]))
	}
	return runs, nil
}

// AddRun persists a run
func (r *GormPipelineRunRepository) AddRun(ctx context.Context, pr *run.PipelineRun) error {
	model := PipelineRunModel{
		ID:         pr.ID(),
		Kind:       string(pr.Kind()),
		Status:     string(pr.Status()),
		StartedAt:  utcPtr(pr.StartedAt()),
		FinishedAt: utcPtr(pr.FinishedAt()),
		Counters:   datatypes.NewJSONType(pr.Counters()),
		Error:      pr.Error(),
	}
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("failed to add run: %w", err)
	}
	return nil
}

func modelToRun(m *PipelineRunModel) *run.PipelineRun {
	return run.RestorePipelineRun(
		m.ID,
		run.Kind(m.Kind),
		shared.LifecycleStatus(m.Status),
		utcPtr(m.StartedAt),
		utcPtr(m.FinishedAt),
		m.Counters.Data(),
		m.Error,
	)
}
