package model

// GuildConfig is the per-guild configuration singleton read by every
// ticket-affecting operation.
type GuildConfig struct {
	// MentionRoleID, if set, is pinged in the intro message of new tickets.
	MentionRoleID string `json:"mention_role_id,omitempty"`
	// WriteRoleID, if set, keeps send access in locked (claimed) tickets.
	WriteRoleID string `json:"write_role_id,omitempty"`
	// AcceptLabel and CloseLabel are the in-ticket button labels.
	AcceptLabel string `json:"accept_label"`
	CloseLabel  string `json:"close_label"`
	// ReceiptMessage is posted when a ticket is accepted.
	ReceiptMessage string `json:"receipt_message"`
}

// DefaultGuildConfig is the shape materialized on first access.
func DefaultGuildConfig() *GuildConfig {
	return &GuildConfig{
		AcceptLabel:    "Accept",
		CloseLabel:     "Close",
		ReceiptMessage: "Your ticket has been accepted. A team member will assist you shortly.",
	}
}
