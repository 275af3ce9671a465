package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planflow/planflow/internal/contract"
)

func writePlanFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestValidateReadyForReview(t *testing.T) {
	s := newTestStore(t)

	t.Run("passes with checked ids and pass evidence", func(t *testing.T) {
		dir := seedPlan(t, s, "01-a", State{Phase: contract.PhaseCoding})
		writePlanFile(t, dir, "todo.md", "- [x] [T1] Implement feature\n- [x] [T2] Add tests\n")
		writePlanFile(t, dir, "evidence.md", strings.Join([]string{
			"## T1",
			"- status: pass",
			"- command: `go test ./...`",
			"- output: all tests green",
			"## T2",
			"- status: pass",
			"- command: `go vet ./...`",
			"- output: clean",
		}, "\n"))

		result, err := s.ValidateReadyForReview(dir)
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.Empty(t, result.Errors)
	})

	t.Run("fails on unchecked items", func(t *testing.T) {
		dir := seedPlan(t, s, "02-b", State{Phase: contract.PhaseCoding})
		writePlanFile(t, dir, "todo.md", "- [x] [T1] Implement feature\n- [ ] [T2] Add tests\n")
		writePlanFile(t, dir, "evidence.md", "## T1\n- status: pass\n- command: `go test`\n- output: ok\n")

		result, err := s.ValidateReadyForReview(dir)
		require.NoError(t, err)
		assert.False(t, result.OK)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "unchecked")
	})

	t.Run("fails on checked item without id", func(t *testing.T) {
		dir := seedPlan(t, s, "03-c", State{Phase: contract.PhaseCoding})
		writePlanFile(t, dir, "todo.md", "- [x] Implement feature\n")
		writePlanFile(t, dir, "evidence.md", "")

		result, err := s.ValidateReadyForReview(dir)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], "explicit IDs")
	})

	t.Run("fails on missing or non-pass evidence", func(t *testing.T) {
		dir := seedPlan(t, s, "04-d", State{Phase: contract.PhaseCoding})
		writePlanFile(t, dir, "todo.md", "- [x] [T1] feature\n- [x] [T2] tests\n")
		writePlanFile(t, dir, "evidence.md", "## T1\n- status: fail\n- command: `go test`\n- output: boom\n")

		result, err := s.ValidateReadyForReview(dir)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Contains(t, strings.Join(result.Errors, "; "), "'T1' as 'fail'")
		assert.Contains(t, strings.Join(result.Errors, "; "), "missing section/status for TODO ID 'T2'")
	})

	t.Run("fails when files are missing", func(t *testing.T) {
		dir := seedPlan(t, s, "05-e", State{Phase: contract.PhaseCoding})

		result, err := s.ValidateReadyForReview(dir)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], "todo.md is missing")
	})

	t.Run("fails on empty todo", func(t *testing.T) {
		dir := seedPlan(t, s, "06-f", State{Phase: contract.PhaseCoding})
		writePlanFile(t, dir, "todo.md", "# Notes, no checklist\n")
		writePlanFile(t, dir, "evidence.md", "")

		result, err := s.ValidateReadyForReview(dir)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], "no checklist items")
	})
}

func TestValidateReadyForDone(t *testing.T) {
	s := newTestStore(t)

	t.Run("passes with pass verdicts for every checked id", func(t *testing.T) {
		dir := seedPlan(t, s, "01-a", State{Phase: contract.PhaseReviewing})
		writePlanFile(t, dir, "todo.md", "- [x] [T1] feature\n- [x] [T2] tests\n")
		writePlanFile(t, dir, "review.md", "- [T1]: pass\n- [T2]: pass\n")

		result, err := s.ValidateReadyForDone(dir)
		require.NoError(t, err)
		assert.True(t, result.OK)
	})

	t.Run("fails on missing verdict", func(t *testing.T) {
		dir := seedPlan(t, s, "02-b", State{Phase: contract.PhaseReviewing})
		writePlanFile(t, dir, "todo.md", "- [x] [T1] feature\n- [x] [T2] tests\n")
		writePlanFile(t, dir, "review.md", "- [T1]: pass\n")

		result, err := s.ValidateReadyForDone(dir)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], "missing verdict for TODO ID 'T2'")
	})

	t.Run("fails on non-pass verdict", func(t *testing.T) {
		dir := seedPlan(t, s, "03-c", State{Phase: contract.PhaseReviewing})
		writePlanFile(t, dir, "todo.md", "- [x] [T1] feature\n")
		writePlanFile(t, dir, "review.md", "- [T1]: partial\n")

		result, err := s.ValidateReadyForDone(dir)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], "'partial', expected 'pass'")
	})

	t.Run("fails without checked ids", func(t *testing.T) {
		dir := seedPlan(t, s, "04-d", State{Phase: contract.PhaseReviewing})
		writePlanFile(t, dir, "todo.md", "- [ ] [T1] feature\n")
		writePlanFile(t, dir, "review.md", "")

		result, err := s.ValidateReadyForDone(dir)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], "requires checked TODO items")
	})
}
