// Package plan manages the on-disk plan directories the workflow commands
// operate on: plans/<NN-slug>/ with plan.md, todo.md, evidence.md, and a
// state.json tracking phase and iteration.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/planflow/planflow/internal/contract"
)

var (
	// ErrPlanNotFound is returned when a plan reference resolves to nothing.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrStateNotFound is returned when a plan directory has no state.json.
	ErrStateNotFound = errors.New("state.json not found for plan")
)

var planDirPattern = regexp.MustCompile(`^\d{2}-`)
var planRefPattern = regexp.MustCompile(`^(\d{1,2})($|-)`)

// State is the persisted lifecycle state of one plan.
type State struct {
	Phase     contract.Phase `json:"phase"`
	Iteration int            `json:"iteration"`
	CreatedAt string         `json:"created_at"`
	EpicID    string         `json:"epic_id,omitempty"`
}

// Resolved identifies a plan directory.
type Resolved struct {
	ID      string // two-digit plan id
	DirName string
	DirPath string
}

// Store reads and mutates plan directories under <cwd>/plans.
type Store struct {
	cwd    string
	logger *slog.Logger
}

// NewStore creates a plan store rooted at the given working directory.
func NewStore(cwd string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{cwd: cwd, logger: logger}
}

// ListPlanDirs returns the plan directory names, sorted. Only entries with
// a two-digit numeric prefix count.
func (s *Store) ListPlanDirs() ([]string, error) {
	plansDir := filepath.Join(s.cwd, "plans")
	entries, err := os.ReadDir(plansDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list plan directories: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && planDirPattern.MatchString(entry.Name()) {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// NormalizeID extracts the two-digit plan id from a reference like "3",
// "03", or "03-auth-flow". Returns false for anything else.
func NormalizeID(planRef string) (string, bool) {
	match := planRefPattern.FindStringSubmatch(planRef)
	if match == nil {
		return "", false
	}
	id := match[1]
	if len(id) == 1 {
		id = "0" + id
	}
	return id, true
}

// Resolve finds a plan by exact directory name or two-digit id prefix.
func (s *Store) Resolve(planRef string) (*Resolved, error) {
	dirs, err := s.ListPlanDirs()
	if err != nil {
		return nil, err
	}

	for _, name := range dirs {
		if name == planRef {
			return &Resolved{
				ID:      name[:2],
				DirName: name,
				DirPath: filepath.Join(s.cwd, "plans", name),
			}, nil
		}
	}

	id, ok := NormalizeID(planRef)
	if !ok {
		return nil, fmt.Errorf("plan '%s': %w", planRef, ErrPlanNotFound)
	}
	for _, name := range dirs {
		if strings.HasPrefix(name, id+"-") {
			return &Resolved{
				ID:      id,
				DirName: name,
				DirPath: filepath.Join(s.cwd, "plans", name),
			}, nil
		}
	}
	return nil, fmt.Errorf("plan '%s': %w", planRef, ErrPlanNotFound)
}

// ReadState loads state.json from a plan directory.
func (s *Store) ReadState(dirPath string) (*State, error) {
	statePath := filepath.Join(dirPath, "state.json")
	data, err := os.ReadFile(statePath)
	if os.IsNotExist(err) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plan state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse plan state: %w", err)
	}
	return &state, nil
}

func (s *Store) writeState(dirPath string, state *State) error {
	statePath := filepath.Join(dirPath, "state.json")
	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		return ErrStateNotFound
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan state: %w", err)
	}
	if err := os.WriteFile(statePath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write plan state: %w", err)
	}
	return nil
}

// Phase returns the plan's current phase, or "unknown" when state.json is
// missing or unreadable.
func (s *Store) Phase(dirPath string) string {
	state, err := s.ReadState(dirPath)
	if err != nil {
		return "unknown"
	}
	return string(state.Phase)
}

// StartCoding moves a plan from planning into coding.
func (s *Store) StartCoding(dirPath string) error {
	state, err := s.ReadState(dirPath)
	if err != nil {
		return err
	}
	if state.Phase != contract.PhasePlanning {
		return fmt.Errorf("cannot start coding from phase '%s'", state.Phase)
	}
	state.Phase = contract.PhaseCoding
	return s.writeState(dirPath, state)
}

// FinishCode moves a plan from coding or fixing into awaiting_review.
func (s *Store) FinishCode(dirPath string) error {
	state, err := s.ReadState(dirPath)
	if err != nil {
		return err
	}
	if state.Phase != contract.PhaseCoding && state.Phase != contract.PhaseFixing {
		return fmt.Errorf("cannot finish coding from phase '%s'", state.Phase)
	}
	state.Phase = contract.PhaseAwaitingReview
	return s.writeState(dirPath, state)
}

// StartReview moves a plan from awaiting_review into reviewing, creating an
// empty review.md if the reviewer has none to append verdicts to yet.
func (s *Store) StartReview(dirPath string) error {
	state, err := s.ReadState(dirPath)
	if err != nil {
		return err
	}
	if state.Phase != contract.PhaseAwaitingReview {
		return fmt.Errorf("cannot start review from phase '%s'", state.Phase)
	}

	reviewPath := filepath.Join(dirPath, "review.md")
	if _, err := os.Stat(reviewPath); os.IsNotExist(err) {
		if err := os.WriteFile(reviewPath, nil, 0o644); err != nil {
			return fmt.Errorf("failed to create review.md: %w", err)
		}
	}

	state.Phase = contract.PhaseReviewing
	return s.writeState(dirPath, state)
}

// StartFix moves a plan from reviewing or blocked into fixing and advances
// the iteration counter.
func (s *Store) StartFix(dirPath string) error {
	state, err := s.ReadState(dirPath)
	if err != nil {
		return err
	}
	if state.Phase != contract.PhaseReviewing && state.Phase != contract.PhaseBlocked {
		return fmt.Errorf("cannot start fixing from phase '%s'", state.Phase)
	}
	state.Phase = contract.PhaseFixing
	state.Iteration++
	return s.writeState(dirPath, state)
}

// Complete moves a plan from reviewing into completed. Every checked TODO
// must carry a passing review verdict first.
func (s *Store) Complete(dirPath string) error {
	state, err := s.ReadState(dirPath)
	if err != nil {
		return err
	}
	if state.Phase != contract.PhaseReviewing {
		return fmt.Errorf("cannot complete plan from phase '%s'", state.Phase)
	}

	quality, err := s.ValidateReadyForDone(dirPath)
	if err != nil {
		return err
	}
	if !quality.OK {
		return fmt.Errorf("plan is not ready for done: %s", strings.Join(quality.Errors, "; "))
	}

	state.Phase = contract.PhaseCompleted
	return s.writeState(dirPath, state)
}

// HasPlanContent reports whether the plan's plan.md has any non-whitespace
// content.
func (s *Store) HasPlanContent(dirPath string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(dirPath, "plan.md"))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read plan.md: %w", err)
	}
	return strings.TrimSpace(string(data)) != "", nil
}

const evidenceTemplate = `# Evidence

Provide execution evidence for each checked TODO ID.

Required format per TODO item:

## T1
- status: pass
- command: ` + "`go test ./...`" + `
- output: short factual result
- notes: optional context

Only ` + "`status: pass`" + ` is accepted for finishing code.
`

// Create scaffolds a new plan directory with the next free two-digit id.
func (s *Store) Create(name, epicID string) (*Resolved, error) {
	dirs, err := s.ListPlanDirs()
	if err != nil {
		return nil, err
	}

	next := 1
	for _, dir := range dirs {
		var n int
		if _, err := fmt.Sscanf(dir[:2], "%02d", &n); err == nil && n >= next {
			next = n + 1
		}
	}

	id := fmt.Sprintf("%02d", next)
	dirName := id + "-" + slugify(name)
	dirPath := filepath.Join(s.cwd, "plans", dirName)
	if _, err := os.Stat(dirPath); err == nil {
		return nil, fmt.Errorf("plan '%s' already exists", dirName)
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plan directory: %w", err)
	}

	files := map[string]string{
		"plan.md":     "",
		"todo.md":     "",
		"evidence.md": evidenceTemplate,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dirPath, name), []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", name, err)
		}
	}

	state := State{
		Phase:     contract.PhasePlanning,
		Iteration: 0,
		CreatedAt: time.Now().UTC().Format("2006-01-02"),
		EpicID:    epicID,
	}
	data, err := json.MarshalIndent(&state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirPath, "state.json"), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write plan state: %w", err)
	}

	s.logger.Info("Plan created",
		slog.String("plan_id", id),
		slog.String("dir", dirName),
	)
	return &Resolved{ID: id, DirName: dirName, DirPath: dirPath}, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(input string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(input), "-")
	return strings.Trim(slug, "-")
}
