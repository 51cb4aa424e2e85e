package models

// RequestCreate is the body for POST /v1/requests.
type RequestCreate struct {
	ExposureID  string      `json:"exposureId"`
	RequestType RequestType `json:"requestType,omitempty"`
}

// RequestView is the representation of a removal request.
type RequestView struct {
	ID                 string        `json:"id"`
	BrokerID           string        `json:"brokerId,omitempty"`
	BrokerName         string        `json:"brokerName"`
	ExposureID         string        `json:"exposureId,omitempty"`
	RequestType        RequestType   `json:"requestType"`
	Status             RequestStatus `json:"status"`
	SubmittedAt        *Timestamp    `json:"submittedAt,omitempty"`
	ExpectedCompletion *Timestamp    `json:"expectedCompletion,omitempty"`
	CompletedAt        *Timestamp    `json:"completedAt,omitempty"`
	RequiresUserAction bool          `json:"requiresUserAction"`
	Instructions       string        `json:"instructions,omitempty"`
	OptOutURL          string        `json:"optOutUrl,omitempty"`
	ProfileURL         string        `json:"profileUrl,omitempty"`
	MethodUsed         string        `json:"methodUsed,omitempty"`
	CreatedAt          Timestamp     `json:"createdAt"`
}

// RequestStats is returned by GET /v1/requests/stats.
type RequestStats struct {
	Total          int `json:"total"`
	Pending        int `json:"pending"`
	Submitted      int `json:"submitted"`
	Completed      int `json:"completed"`
	Failed         int `json:"failed"`
	RequiresAction int `json:"requiresAction"`
}

// SubmitResponse is returned by POST /v1/requests/{id}/submit.
type SubmitResponse struct {
	Status             RequestStatus `json:"status"`
	ExpectedCompletion *Timestamp    `json:"expectedCompletion,omitempty"`
	Message            string        `json:"message"`
}

// CompleteResponse is returned by POST /v1/requests/{id}/complete.
type CompleteResponse struct {
	Status  RequestStatus `json:"status"`
	Message string        `json:"message"`
}
