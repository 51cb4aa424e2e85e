package models

// BrokerView is the public representation of a data broker catalog entry.
type BrokerView struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Domain           string       `json:"domain"`
	Category         string       `json:"category,omitempty"`
	SearchURLPattern string       `json:"searchUrlPattern,omitempty"`
	OptOutMethod     OptOutMethod `json:"optOutMethod"`
	ProcessingDays   int          `json:"processingDays"`
	Difficulty       int          `json:"difficulty"`
	CanAutomate      bool         `json:"canAutomate"`
	IsActive         bool         `json:"isActive"`
}

// ExposureView is the representation of a broker exposure.
type ExposureView struct {
	ID              string                 `json:"id"`
	BrokerID        string                 `json:"brokerId,omitempty"`
	BrokerName      string                 `json:"brokerName"`
	Status          ExposureStatus         `json:"status"`
	ProfileURL      string                 `json:"profileUrl,omitempty"`
	DataFound       map[string]bool        `json:"dataFound,omitempty"`
	FirstDetectedAt Timestamp              `json:"firstDetectedAt"`
	LastCheckedAt   Timestamp              `json:"lastCheckedAt"`
	RemovedAt       *Timestamp             `json:"removedAt,omitempty"`
}

// DashboardStats is returned by GET /v1/brokers/stats.
type DashboardStats struct {
	TotalExposures    int `json:"totalExposures"`
	PendingRemovals   int `json:"pendingRemovals"`
	CompletedRemovals int `json:"completedRemovals"`
	BrokersScanned    int `json:"brokersScanned"`
}

// ScanAccepted is returned by POST /v1/brokers/scan.
type ScanAccepted struct {
	ScanID  string    `json:"scanId"`
	Status  ScanState `json:"status"`
	Message string    `json:"message"`
}

// ScanStatus is returned by GET /v1/brokers/scan/status.
type ScanStatus struct {
	ScanID       string    `json:"scanId,omitempty"`
	Status       ScanState `json:"status"`
	TotalBrokers int       `json:"totalBrokers"`
	Scanned      int       `json:"scanned"`
	Found        int       `json:"found"`
}
