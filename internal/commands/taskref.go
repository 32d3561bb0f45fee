package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"tasksync/internal/repo"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Letter    rune // 0 if no letter, 'a'-'z' otherwise
	TaskNum   int  // 1-based task number
	HasLetter bool // true if a list letter was provided
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
//  1. If first arg is all digits → default list reference
//  2. If first arg is <letter><digits> (e.g., a1, b12) → combined reference
//  3. If first arg is single letter and second arg is all digits → separated reference (a 1)
//  4. If first arg is single letter with no second arg → error: task reference required
//  5. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	firstArg := args[0]

	// Case 1: All digits → default list, numeric reference
	if isAllDigits(firstArg) {
		num, err := strconv.Atoi(firstArg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
		}
		return TaskRef{TaskNum: num, HasLetter: false}, nil
	}

	if len(firstArg) > 0 && isLetter(rune(firstArg[0])) {
		letter := rune(firstArg[0])

		// Case 2: <letter><digits> (e.g., a1, b12)
		if len(firstArg) > 1 && isAllDigits(firstArg[1:]) {
			num, err := strconv.Atoi(firstArg[1:])
			if err != nil {
				return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
			}
			return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, nil
		}

		// Case 3: Single letter, check for second arg with digits
		if len(firstArg) == 1 {
			if len(args) < 2 {
				return TaskRef{}, ErrTaskRefRequired
			}
			secondArg := args[1]
			if isAllDigits(secondArg) {
				num, err := strconv.Atoi(secondArg)
				if err != nil {
					return TaskRef{}, fmt.Errorf("invalid task reference: %s", secondArg)
				}
				return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, nil
			}
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
		}
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isLetter returns true if r is a lowercase letter a-z.
func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// resolveListByLetter maps a list letter to a list. Letters are assigned
// a-z to non-default lists with open tasks, in snapshot order, matching
// the numbering the bare list command prints.
func resolveListByLetter(views []repo.TaskListView, letter rune) (repo.TaskListView, error) {
	def, defErr := defaultList(views)
	currentLetter := 'a'
	for _, v := range views {
		if defErr == nil && v.ID == def.ID {
			continue
		}
		if len(openTasks(v)) == 0 {
			continue
		}
		if currentLetter == letter {
			return v, nil
		}
		currentLetter++
		if currentLetter > 'z' {
			break
		}
	}
	return repo.TaskListView{}, fmt.Errorf("list letter not found: %c", letter)
}

// findTaskByNumber returns the list's num-th open task (1-based).
func findTaskByNumber(v repo.TaskListView, num int) (repo.TaskView, error) {
	open := openTasks(v)
	if num < 1 || num > len(open) {
		return repo.TaskView{}, fmt.Errorf("task number out of range: %d", num)
	}
	return open[num-1], nil
}
