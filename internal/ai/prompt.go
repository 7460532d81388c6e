package ai

import "strings"

const userInstruction = "Extract the todo items from this screenshot:"

// buildSystemPrompt constructs the extraction rules, the known category
// names, and any user-supplied prose.
func buildSystemPrompt(categories []string, custom string) string {
	var sb strings.Builder

	sb.WriteString("You are a todo extraction assistant. ")
	sb.WriteString("Identify and extract todo items from the screenshot the user provides.\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("1. Look for tasks, action items, questions and checklists. ")
	sb.WriteString("If the image shows a problem, the todo is to solve it.\n")
	sb.WriteString("2. Give every todo a title, a description and a priority.\n")
	sb.WriteString("3. Priority is one of high, medium or low, judged from the content.\n")
	sb.WriteString("4. If a due date is visible, include it as YYYY-MM-DD.\n")
	sb.WriteString("5. Respond with a JSON array.\n\n")

	if len(categories) > 0 {
		sb.WriteString("Available categories: ")
		sb.WriteString(strings.Join(categories, ", "))
		sb.WriteString(". When a todo fits one, put the category name first in its tags.\n\n")
	}

	sb.WriteString("Example:\n")
	sb.WriteString(`[
  {
    "title": "Finish project documentation",
    "description": "Write the technical docs and submit them for review",
    "priority": "high",
    "tags": ["Work", "docs"],
    "dueDate": "2026-01-10"
  }
]`)
	sb.WriteString("\n\n")

	sb.WriteString("Notes:\n")
	sb.WriteString("- If the image contains nothing actionable, return an empty array [].\n")
	sb.WriteString("- Return only JSON, with no other text.")

	if custom = strings.TrimSpace(custom); custom != "" {
		sb.WriteString("\n\nAdditional instructions:\n")
		sb.WriteString(custom)
	}

	return sb.String()
}
