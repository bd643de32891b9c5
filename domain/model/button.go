package model

// ButtonDefinition is one ticket-open button attached to a panel message.
// The persisted list is what lets previously sent panels keep working
// after a restart.
type ButtonDefinition struct {
	Label      string `json:"label"`
	Style      string `json:"style"` // primary, secondary, success, danger
	CategoryID string `json:"category_id"`
}

// ButtonSet maps a panel message ID to its ordered button definitions.
// "add button" appends; definitions are never removed in normal flow.
type ButtonSet map[string][]ButtonDefinition
