package parse

import (
	"encoding/json"
	"strings"

	"github.com/nas/track-learning/internal/item"
)

// archivePhrases are the edit phrasings that must force status Archived.
var archivePhrases = []string{
	"archive",
	"archive this",
	"mark as archived",
	"archive it",
	"set status to archived",
}

func jsonList(values []string) string {
	data, _ := json.Marshal(values)
	return string(data)
}

func jsonValue(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func enumLine() string {
	return "Use enums: type in " + jsonList(item.TypeNames()) +
		", status in " + jsonList(item.StatusNames()) + "."
}

// addPrompt builds the system prompt for turning a message into a new item.
func addPrompt(nowISO string) string {
	return strings.Join([]string{
		"You extract a learning item from a user message.",
		"Return ONLY a JSON object with these keys:",
		"title, author, type, status, progress, url, startDate.",
		`When the message names a website rather than a person, put it in "website" instead of "author".`,
		enumLine(),
		"If a field is missing, omit it or use a sensible default.",
		"Use ISO 8601 for startDate. If not provided, use " + nowISO + ".",
	}, " ")
}

// editPrompt builds the system prompt for turning a message into a partial update.
func editPrompt(current item.Context) string {
	quoted := make([]string, len(archivePhrases))
	for i, p := range archivePhrases {
		quoted[i] = `"` + p + `"`
	}

	return strings.Join([]string{
		"You update an existing learning item from a user message.",
		"The current item is: " + jsonValue(current) + ".",
		"Return ONLY a JSON object containing the fields the user wants to change, chosen from: status, progress, url.",
		"Use enums: status in " + jsonList(item.StatusNames()) + ".",
		"Omit every field the user did not ask to change.",
		`Progress is free text, usually a percentage such as "45%".`,
		`To remove the link, set "url" to "".`,
		"Archiving rule: if the user mentions archiving in any form, such as " + strings.Join(quoted, ", ") +
			`, set "status" to "Archived". This takes precedence over any other status you might infer.`,
	}, " ")
}

// searchPrompt builds the system prompt for turning a query into search criteria.
func searchPrompt() string {
	types := item.TypeNames()
	statuses := item.StatusNames()

	examples := []struct {
		query    string
		criteria map[string]any
	}{
		{"books I finished", map[string]any{"type": types[0], "status": "Completed"}},
		{"books and courses about go", map[string]any{"searchText": "go", "type": []string{types[0], types[1]}}},
		{"everything that is not archived", map[string]any{"excludeStatus": "Archived"}},
		{"non-books on hold or in progress", map[string]any{"excludeType": types[0], "status": []string{"On Hold", "In Progress"}}},
		{"articles more than 50% done", map[string]any{"type": types[2], "progressMin": "50%"}},
		{"courses under 20%, exclude completed", map[string]any{"type": types[1], "progressMax": "20%", "excludeStatus": "Completed"}},
	}

	lines := []string{
		"You turn a search request over a learning tracker into filter criteria.",
		"Return ONLY a JSON object with any of these keys: searchText, type, excludeType, status, excludeStatus, progressMin, progressMax.",
		"Valid type values: " + jsonList(types) + ".",
		"Valid status values: " + jsonList(statuses) + ".",
		"Use a single string when one value matches and an array when several values should match (any of them).",
		`Use excludeType or excludeStatus for negated phrasing such as "not archived", "non-books" or "exclude completed".`,
		"Put remaining keywords about title or author into searchText.",
		`For "more than N%" or "at least N%" set progressMin to "N%". For "less than N%" or "under N%" set progressMax to "N%".`,
		"Omit keys that do not apply. Never return empty strings.",
		"Examples:",
	}
	for _, ex := range examples {
		lines = append(lines, "Query: "+jsonValue(ex.query)+" -> "+jsonValue(ex.criteria))
	}
	return strings.Join(lines, "\n")
}
