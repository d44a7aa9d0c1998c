package dto

type NotificationView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Link      string `json:"link,omitempty"`
	Category  string `json:"category"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationView `json:"notifications"`
}

type NotificationPrefsRequest struct {
	Prefs map[string]bool `json:"prefs"`
}

type NotificationPrefsResponse struct {
	OK bool `json:"ok"`
}

type MarkReadResponse struct {
	OK bool `json:"ok"`
}
