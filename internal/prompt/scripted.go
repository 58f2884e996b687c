package prompt

import (
	"fmt"
	"strings"
)

// Scripted answers questions from a fixed list and records what was asked.
// It reports itself interactive unless NonInteractive is set, so tests can
// exercise both operator paths.
type Scripted struct {
	Answers        []string
	NonInteractive bool

	Prompts []string
	Output  []string
}

// NewScripted creates a Scripted prompter with the given answers.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{Answers: answers}
}

func (s *Scripted) Interactive() bool { return !s.NonInteractive }

func (s *Scripted) Println(a ...any) {
	s.Output = append(s.Output, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
}

func (s *Scripted) Ask(question string) (string, error) {
	s.Prompts = append(s.Prompts, question)
	if s.NonInteractive || len(s.Answers) == 0 {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(question), ErrNotInteractive)
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return strings.TrimSpace(answer), nil
}

func (s *Scripted) Confirm(question string) (bool, error) {
	ans, err := s.Ask(question)
	if err != nil {
		return false, err
	}
	return IsYes(ans), nil
}

// Asked reports whether any recorded prompt contains fragment.
func (s *Scripted) Asked(fragment string) bool {
	for _, p := range s.Prompts {
		if strings.Contains(p, fragment) {
			return true
		}
	}
	return false
}
