package model

import "time"

// Report is one scammer report filed against a member.
type Report struct {
	ReportedBy string    `json:"reported_by"`
	ScammerID  string    `json:"scammer_id"`
	Story      string    `json:"story"`
	ProofURL   string    `json:"proof"`
	CreatedAt  time.Time `json:"created_at"`
}
