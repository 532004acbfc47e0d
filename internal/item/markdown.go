package item

import (
	"fmt"
	"strings"
)

// Markdown renders the item as a short Markdown card.
func (it Item) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", it.Title)
	fmt.Fprintf(&b, "_by %s_\n\n", it.Author)
	fmt.Fprintf(&b, "- **Type:** %s\n", it.Type)
	fmt.Fprintf(&b, "- **Status:** %s\n", it.Status)
	fmt.Fprintf(&b, "- **Progress:** %s\n", it.Progress)
	fmt.Fprintf(&b, "- **Started:** %s\n", it.StartDate)
	if it.URL != nil {
		fmt.Fprintf(&b, "\n[%s](%s)\n", *it.URL, *it.URL)
	}
	return b.String()
}
