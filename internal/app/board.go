package app

import (
	"context"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

// BoardService computes the Kanban board projection. Read-only: it
// never mutates state, so two calls without intervening writes yield
// identical output.
type BoardService struct {
	processes domain.ProcessRepository
	records   domain.RecordRepository
}

// NewBoardService creates the projection service.
func NewBoardService(processes domain.ProcessRepository, records domain.RecordRepository) *BoardService {
	return &BoardService{processes: processes, records: records}
}

// Project groups the process's active records by current stage.
func (s *BoardService) Project(ctx context.Context, processID string) ([]domain.BoardColumn, error) {
	def, err := s.processes.GetByID(ctx, processID)
	if err != nil {
		return nil, err
	}

	records, err := s.records.ListByProcess(ctx, processID)
	if err != nil {
		return nil, err
	}

	return domain.BuildBoard(def, records), nil
}
