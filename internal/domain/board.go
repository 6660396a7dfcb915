package domain

import (
	"sort"
	"time"
)

// BoardCard is the board projection of one record.
type BoardCard struct {
	ID       string
	Title    string
	Progress int
	MovedAt  time.Time
}

// BoardColumn groups the active records currently sitting on one
// stage, for Kanban-style consumption.
type BoardColumn struct {
	StageID   string
	StageName string
	Color     string
	Records   []BoardCard
}

// BuildBoard groups the given records by current stage. Columns follow
// the definition's stage order; within a column, records are ordered
// by most recent stage change first (ties broken by record id so the
// projection is deterministic). Archived records are excluded. The
// input is never mutated.
func BuildBoard(def ProcessDefinition, records []ProcessRecord) []BoardColumn {
	byStage := make(map[string][]BoardCard, len(def.Stages))
	for _, r := range records {
		if r.Lifecycle != LifecycleActive {
			continue
		}
		byStage[r.CurrentStageID] = append(byStage[r.CurrentStageID], BoardCard{
			ID:       r.ID,
			Title:    r.Title,
			Progress: r.Progress,
			MovedAt:  r.LastMovedAt(),
		})
	}

	columns := make([]BoardColumn, 0, len(def.Stages))
	for _, s := range def.Stages {
		cards := byStage[s.ID]
		sort.Slice(cards, func(i, j int) bool {
			if !cards[i].MovedAt.Equal(cards[j].MovedAt) {
				return cards[i].MovedAt.After(cards[j].MovedAt)
			}
			return cards[i].ID < cards[j].ID
		})
		columns = append(columns, BoardColumn{
			StageID:   s.ID,
			StageName: s.Name,
			Color:     s.Color,
			Records:   cards,
		})
	}

	return columns
}
