package menu

import "strconv"

// Callback data prefixes and literals understood by HandleAction.
const (
	SelectChainPrefix = "select_chain:"
	PagePrefix        = "page:"

	HighlightMarker = "🔴 "
	PrevLabel       = "← Previous"
	NextLabel       = "Next →"

	chainsPerRow  = 3
	actionColumns = 2
)

// Button is an inline button carrying raw callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, row by row.
type Keyboard [][]Button

// Empty reports whether the keyboard has no buttons at all.
func (k Keyboard) Empty() bool {
	for _, row := range k {
		if len(row) > 0 {
			return false
		}
	}
	return true
}

// TotalPages returns ceil(n/size).
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate renders one page of chains as rows of three buttons, marking
// highlighted, followed by a navigation row when there is somewhere to go.
// The page is not range-checked: an out-of-range page yields no chain buttons.
func Paginate(items []string, page, size int, highlighted string) Keyboard {
	if size <= 0 {
		return Keyboard{}
	}
	total := TotalPages(len(items), size)

	var slice []string
	if page >= 0 && page < total {
		start := page * size
		end := min(start+size, len(items))
		slice = items[start:end]
	}

	rows := make(Keyboard, 0, len(slice)/chainsPerRow+2)
	for i := 0; i < len(slice); i += chainsPerRow {
		end := min(i+chainsPerRow, len(slice))
		row := make([]Button, 0, end-i)
		for _, name := range slice[i:end] {
			text := name
			if highlighted != "" && name == highlighted {
				text = HighlightMarker + name
			}
			row = append(row, Button{Text: text, Data: SelectChainPrefix + name})
		}
		rows = append(rows, row)
	}

	var nav []Button
	if page > 0 {
		nav = append(nav, Button{Text: PrevLabel, Data: PagePrefix + strconv.Itoa(page-1)})
	}
	if page < total-1 {
		nav = append(nav, Button{Text: NextLabel, Data: PagePrefix + strconv.Itoa(page+1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return rows
}

// ActionMenu is the six-category menu shown once a chain is selected.
func ActionMenu() Keyboard {
	buttons := make([]Button, 0, len(categories))
	for _, c := range categories {
		buttons = append(buttons, Button{Text: c.Label(), Data: string(c)})
	}
	rows := make(Keyboard, 0, (len(buttons)+actionColumns-1)/actionColumns)
	for i := 0; i < len(buttons); i += actionColumns {
		rows = append(rows, buttons[i:min(i+actionColumns, len(buttons))])
	}
	return rows
}
