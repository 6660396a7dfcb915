package domain_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

func boardDef() domain.ProcessDefinition {
	def := domain.NewProcessDefinition("p-1", "org-1", "QM-01", "test")
	def.Stages = threeStages()
	return def
}

func recordAt(id, stageID string, movedAt time.Time) domain.ProcessRecord {
	return domain.ProcessRecord{
		ID:             id,
		ProcessID:      "p-1",
		Title:          "rec " + id,
		CurrentStageID: stageID,
		Lifecycle:      domain.LifecycleActive,
		StateHistory: []domain.HistoryEntry{
			{StageID: stageID, ChangedAt: movedAt, ChangedBy: "u"},
		},
	}
}

func TestBuildBoard_GroupsByStageInOrder(t *testing.T) {
	now := time.Now().UTC()
	records := []domain.ProcessRecord{
		recordAt("r-1", "s-1", now),
		recordAt("r-2", "s-3", now),
		recordAt("r-3", "s-1", now.Add(time.Minute)),
	}

	board := domain.BuildBoard(boardDef(), records)

	if len(board) != 3 {
		t.Fatalf("got %d columns, want 3", len(board))
	}
	if board[0].StageID != "s-1" || board[1].StageID != "s-2" || board[2].StageID != "s-3" {
		t.Errorf("columns out of order: %q %q %q", board[0].StageID, board[1].StageID, board[2].StageID)
	}
	if board[0].StageName != "iniciado" || board[0].Color != "#2ecc71" {
		t.Errorf("column metadata wrong: %+v", board[0])
	}
	if len(board[0].Records) != 2 || len(board[1].Records) != 0 || len(board[2].Records) != 1 {
		t.Fatalf("column sizes = %d/%d/%d, want 2/0/1",
			len(board[0].Records), len(board[1].Records), len(board[2].Records))
	}
	// Most recently moved first.
	if board[0].Records[0].ID != "r-3" {
		t.Errorf("first card = %q, want r-3 (most recently moved)", board[0].Records[0].ID)
	}
}

func TestBuildBoard_ExcludesArchivedRecords(t *testing.T) {
	now := time.Now().UTC()
	archived := recordAt("r-1", "s-1", now)
	archived.Lifecycle = domain.LifecycleArchived

	board := domain.BuildBoard(boardDef(), []domain.ProcessRecord{archived})

	for _, col := range board {
		if len(col.Records) != 0 {
			t.Errorf("archived record leaked into column %q", col.StageID)
		}
	}
}

func TestBuildBoard_EmptyProcess(t *testing.T) {
	board := domain.BuildBoard(boardDef(), nil)
	if len(board) != 3 {
		t.Fatalf("empty process must still yield one column per stage, got %d", len(board))
	}
}

func TestBuildBoard_Idempotent(t *testing.T) {
	now := time.Now().UTC()
	records := []domain.ProcessRecord{
		recordAt("r-1", "s-1", now),
		recordAt("r-2", "s-1", now), // same timestamp: tie broken by id
		recordAt("r-3", "s-2", now.Add(time.Second)),
	}

	first := domain.BuildBoard(boardDef(), records)
	second := domain.BuildBoard(boardDef(), records)

	if !reflect.DeepEqual(first, second) {
		t.Error("BuildBoard is not idempotent over identical input")
	}
	if first[0].Records[0].ID != "r-1" {
		t.Errorf("tie-break by id: first card = %q, want r-1", first[0].Records[0].ID)
	}
}
