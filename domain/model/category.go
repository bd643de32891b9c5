package model

// CategoryMessage is the auto-message posted inside tickets opened under a
// category. Either field may be empty; an absent record means no auto-message.
type CategoryMessage struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}
