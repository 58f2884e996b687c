package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"bootstick/internal/fault"
)

// ManualKey selects the manual-entry option of a menu.
const ManualKey = "m"

// Menu is a numbered list of options.
type Menu struct {
	Title   string
	Headers []string
	Rows    [][]string
	Aligns  []Alignment
	// Manual, when set, labels an extra option for typing a value by hand.
	Manual string
}

// Choice is the operator's menu selection.
type Choice struct {
	Index  int
	Manual bool
}

// Select shows m and reads a selection. Malformed and out-of-range answers
// are input errors; there is no re-prompt.
func Select(p Prompter, m Menu) (Choice, error) {
	if len(m.Rows) == 0 && m.Manual == "" {
		return Choice{}, fault.Input("%s: nothing to choose from", m.Title)
	}
	headers := append([]string{"#"}, m.Headers...)
	aligns := append([]Alignment{AlignRight}, m.Aligns...)
	rows := make([][]string, 0, len(m.Rows))
	for i, row := range m.Rows {
		rows = append(rows, append([]string{strconv.Itoa(i + 1)}, row...))
	}
	if m.Title != "" {
		p.Println(m.Title)
	}
	if len(rows) > 0 {
		p.Println(RenderTable(headers, rows, aligns))
	}

	question := fmt.Sprintf("Select 1-%d: ", len(rows))
	switch {
	case len(rows) == 0:
		question = fmt.Sprintf("Enter %s to %s: ", ManualKey, strings.ToLower(m.Manual))
	case m.Manual != "":
		p.Println(fmt.Sprintf("  %s) %s", ManualKey, m.Manual))
		question = fmt.Sprintf("Select 1-%d or %s: ", len(rows), ManualKey)
	}
	answer, err := p.Ask(question)
	if err != nil {
		return Choice{}, fault.New(fault.KindInput, "no selection made", err)
	}
	return ParseSelection(answer, len(rows), m.Manual != "")
}

// ParseSelection interprets a menu answer against count options.
func ParseSelection(answer string, count int, allowManual bool) (Choice, error) {
	answer = strings.TrimSpace(answer)
	if allowManual && strings.EqualFold(answer, ManualKey) {
		return Choice{Manual: true}, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		return Choice{}, fault.Input("selection %q is not a number", answer)
	}
	if n < 1 || n > count {
		return Choice{}, fault.Input("selection %d is out of range 1-%d", n, count)
	}
	return Choice{Index: n - 1}, nil
}
