package models

// AlertView is the representation of a monitoring alert.
type AlertView struct {
	ID          string        `json:"id"`
	AlertType   AlertType     `json:"alertType"`
	Severity    AlertSeverity `json:"severity"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	SourceURL   string        `json:"sourceUrl,omitempty"`
	IsRead      bool          `json:"isRead"`
	CreatedAt   Timestamp     `json:"createdAt"`
}

// AlertStats is returned by GET /v1/monitoring/alerts/stats.
// Critical and High count unread alerts only.
type AlertStats struct {
	Total    int `json:"total"`
	Unread   int `json:"unread"`
	Critical int `json:"critical"`
	High     int `json:"high"`
}

// AlertReadResponse is returned by the alert read endpoints.
type AlertReadResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count,omitempty"`
}
