package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// QualityResult is the verdict of a review or done gate.
type QualityResult struct {
	OK     bool
	Errors []string
}

type todoItem struct {
	checked bool
	id      string
	text    string
}

type evidenceSection struct {
	status  string
	command string
	output  string
}

var (
	todoPattern            = regexp.MustCompile(`^\s*-\s*\[( |x|X)\]\s+(.*?)\s*$`)
	todoIDPattern          = regexp.MustCompile(`^\[([A-Za-z][A-Za-z0-9._-]*)\]\s+(.*)$`)
	evidenceSectionPattern = regexp.MustCompile(`^##\s+([A-Za-z][A-Za-z0-9._-]*)\s*$`)
	evidenceStatusPattern  = regexp.MustCompile(`(?i)^\s*-\s*status:\s*(pass|fail|partial)\s*$`)
	evidenceCommandPattern = regexp.MustCompile("(?i)^\\s*-\\s*command:\\s*`?(.+?)`?\\s*$")
	evidenceOutputPattern  = regexp.MustCompile(`(?i)^\s*-\s*output:\s*(.+?)\s*$`)
	reviewVerdictPattern   = regexp.MustCompile(`(?i)^\s*-\s*\[([A-Za-z][A-Za-z0-9._-]*)\]\s*:\s*(pass|fail|partial)\s*$`)
)

func parseTodoItems(content string) []todoItem {
	var items []todoItem
	for _, line := range strings.Split(content, "\n") {
		match := todoPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		item := todoItem{checked: strings.EqualFold(match[1], "x")}
		rawText := strings.TrimSpace(match[2])
		if idMatch := todoIDPattern.FindStringSubmatch(rawText); idMatch != nil {
			item.id = idMatch[1]
			item.text = strings.TrimSpace(idMatch[2])
		} else {
			item.text = rawText
		}
		items = append(items, item)
	}
	return items
}

func collectDuplicateIDs(ids []string) []string {
	counts := make(map[string]int)
	for _, id := range ids {
		counts[id]++
	}

	var dups []string
	for id, count := range counts {
		if count > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

func parseEvidenceSections(content string) map[string]*evidenceSection {
	sections := make(map[string]*evidenceSection)
	var current *evidenceSection

	for _, line := range strings.Split(content, "\n") {
		if match := evidenceSectionPattern.FindStringSubmatch(line); match != nil {
			current = &evidenceSection{}
			sections[match[1]] = current
			continue
		}
		if current == nil {
			continue
		}

		if match := evidenceStatusPattern.FindStringSubmatch(line); match != nil {
			current.status = strings.ToLower(match[1])
			continue
		}
		if match := evidenceCommandPattern.FindStringSubmatch(line); match != nil {
			current.command = strings.TrimSpace(match[1])
			continue
		}
		if match := evidenceOutputPattern.FindStringSubmatch(line); match != nil {
			current.output = strings.TrimSpace(match[1])
		}
	}
	return sections
}

func parseReviewVerdicts(content string) map[string]string {
	verdicts := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		match := reviewVerdictPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		verdicts[match[1]] = strings.ToLower(match[2])
	}
	return verdicts
}

func readOptional(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return string(data), true, nil
}

// ValidateReadyForReview checks that every TODO item is checked with an
// explicit id and that evidence.md carries a passing section for each one.
func (s *Store) ValidateReadyForReview(dirPath string) (QualityResult, error) {
	todoContent, todoExists, err := readOptional(filepath.Join(dirPath, "todo.md"))
	if err != nil {
		return QualityResult{}, err
	}
	if !todoExists {
		return QualityResult{Errors: []string{"todo.md is missing in plan directory."}}, nil
	}

	evidenceContent, evidenceExists, err := readOptional(filepath.Join(dirPath, "evidence.md"))
	if err != nil {
		return QualityResult{}, err
	}
	if !evidenceExists {
		return QualityResult{Errors: []string{
			"evidence.md is missing in plan directory. Create it and add pass evidence for checked TODO IDs.",
		}}, nil
	}

	items := parseTodoItems(todoContent)
	if len(items) == 0 {
		return QualityResult{Errors: []string{"todo.md contains no checklist items to validate."}}, nil
	}

	var errs []string
	var uncheckedCount, checkedWithoutID int
	var checkedIDs []string
	for _, item := range items {
		switch {
		case !item.checked:
			uncheckedCount++
		case item.id == "":
			checkedWithoutID++
		default:
			checkedIDs = append(checkedIDs, item.id)
		}
	}

	if uncheckedCount > 0 {
		errs = append(errs, fmt.Sprintf("todo.md has %d unchecked item(s).", uncheckedCount))
	}
	if checkedWithoutID > 0 {
		errs = append(errs, "All checked TODO items must use explicit IDs in format: - [x] [T1] task text.")
	}
	if dups := collectDuplicateIDs(checkedIDs); len(dups) > 0 {
		errs = append(errs, fmt.Sprintf("Duplicate TODO IDs found: %s.", strings.Join(dups, ", ")))
	}

	sections := parseEvidenceSections(evidenceContent)
	for _, id := range checkedIDs {
		section, ok := sections[id]
		if !ok || section.status == "" {
			errs = append(errs, fmt.Sprintf("evidence.md is missing section/status for TODO ID '%s'.", id))
			continue
		}
		if section.status != "pass" {
			errs = append(errs, fmt.Sprintf("evidence.md marks TODO ID '%s' as '%s', expected 'pass'.", id, section.status))
		}
		if section.command == "" {
			errs = append(errs, fmt.Sprintf("evidence.md is missing command for TODO ID '%s'.", id))
		}
		if section.output == "" {
			errs = append(errs, fmt.Sprintf("evidence.md is missing output for TODO ID '%s'.", id))
		}
	}

	return QualityResult{OK: len(errs) == 0, Errors: errs}, nil
}

// ValidateReadyForDone checks that review.md carries a passing verdict for
// every checked TODO id.
func (s *Store) ValidateReadyForDone(dirPath string) (QualityResult, error) {
	todoContent, todoExists, err := readOptional(filepath.Join(dirPath, "todo.md"))
	if err != nil {
		return QualityResult{}, err
	}
	if !todoExists {
		return QualityResult{Errors: []string{"todo.md is missing in plan directory."}}, nil
	}

	reviewContent, reviewExists, err := readOptional(filepath.Join(dirPath, "review.md"))
	if err != nil {
		return QualityResult{}, err
	}
	if !reviewExists {
		return QualityResult{Errors: []string{
			"review.md is missing in plan directory. Add verdict lines for checked TODO IDs: - [T1]: pass|fail|partial",
		}}, nil
	}

	var checkedIDs []string
	for _, item := range parseTodoItems(todoContent) {
		if item.checked && item.id != "" {
			checkedIDs = append(checkedIDs, item.id)
		}
	}

	var errs []string
	if len(checkedIDs) == 0 {
		errs = append(errs, "review gating requires checked TODO items with explicit IDs.")
	}
	if dups := collectDuplicateIDs(checkedIDs); len(dups) > 0 {
		errs = append(errs, fmt.Sprintf("Duplicate TODO IDs found: %s.", strings.Join(dups, ", ")))
	}

	verdicts := parseReviewVerdicts(reviewContent)
	for _, id := range checkedIDs {
		verdict, ok := verdicts[id]
		if !ok {
			errs = append(errs, fmt.Sprintf("review.md is missing verdict for TODO ID '%s'. Add line: - [%s]: pass|fail|partial", id, id))
			continue
		}
		if verdict != "pass" {
			errs = append(errs, fmt.Sprintf("review.md verdict for TODO ID '%s' is '%s', expected 'pass'.", id, verdict))
		}
	}

	return QualityResult{OK: len(errs) == 0, Errors: errs}, nil
}
