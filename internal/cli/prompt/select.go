package prompt

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// Action is what the user picked in the category menu.
type Action int

const (
	ActionClassify Action = iota
	ActionUndo
	ActionSubmit
	ActionQuit
)

// Choice is the result of SelectCategory. Category is set only for
// ActionClassify.
type Choice struct {
	Action   Action
	Category string
}

type menuItem struct {
	Label  string
	Hint   string
	Choice Choice
	Other  bool
}

const (
	labelOther  = "Other..."
	labelUndo   = "Undo last"
	labelSubmit = "Submit pending"
	labelQuit   = "Quit"
)

// MenuOptions tunes the category menu.
type MenuOptions struct {
	// AllowUndo adds the undo entry; false when nothing can be undone
	AllowUndo bool
	// AllowSubmit adds the submit entry; false when nothing is pending
	AllowSubmit bool
}

// menu lays out categories first, then free text, then the actions.
func menu(categories []string, opts MenuOptions) []menuItem {
	items := make([]menuItem, 0, len(categories)+4)
	for i, c := range categories {
		items = append(items, menuItem{
			Label:  c,
			Hint:   fmt.Sprintf("%d", i+1),
			Choice: Choice{Action: ActionClassify, Category: c},
		})
	}
	items = append(items, menuItem{Label: labelOther, Other: true})
	if opts.AllowUndo {
		items = append(items, menuItem{Label: labelUndo, Choice: Choice{Action: ActionUndo}})
	}
	if opts.AllowSubmit {
		items = append(items, menuItem{Label: labelSubmit, Choice: Choice{Action: ActionSubmit}})
	}
	items = append(items, menuItem{Label: labelQuit, Choice: Choice{Action: ActionQuit}})
	return items
}

func menuTemplates() *promptui.SelectTemplates {
	return &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   `> {{ .Label | cyan }}{{ if .Hint }} {{ .Hint | faint }}{{ end }}`,
		Inactive: `  {{ .Label }}{{ if .Hint }} {{ .Hint | faint }}{{ end }}`,
		Selected: `{{ "*" | green }} {{ .Label }}`,
	}
}

// SelectCategory shows the category menu for one image. Picking "Other..."
// asks for a free-text category.
func SelectCategory(label string, categories []string, opts MenuOptions) (Choice, error) {
	items := menu(categories, opts)
	sel := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: menuTemplates(),
		Size:      min(len(items), 12),
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index].Label), strings.ToLower(input))
		},
	}

	i, _, err := sel.Run()
	if err != nil {
		return Choice{}, wrapError(err)
	}
	if !items[i].Other {
		return items[i].Choice, nil
	}

	category, err := InputRequired("Category")
	if err != nil {
		return Choice{}, err
	}
	return Choice{Action: ActionClassify, Category: category}, nil
}

// ParseCategories splits a comma separated list, dropping blanks and
// duplicates while keeping order.
func ParseCategories(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, ",") {
		c := strings.TrimSpace(part)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
