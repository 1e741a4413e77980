package dto

// TickRequest is the admin tick request body. DryRun is a pointer so
// an explicit false can be told apart from an omitted field; only true
// (or omitted) is accepted.
type TickRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
	Limit      int    `json:"limit"`
	DryRun     *bool  `json:"dryRun"`
}

// ListQueueRequest holds the queue listing query parameters
type ListQueueRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// QueueItemDTO is the wire shape of one queue item
type QueueItemDTO struct {
	ID               string `json:"id"`
	CustomerID       string `json:"customerId"`
	EnrollmentID     string `json:"enrollmentId"`
	RecipientID      string `json:"recipientId"`
	RecipientEmail   string `json:"recipientEmail"`
	SenderIdentityID string `json:"senderIdentityId,omitempty"`
	Status           string `json:"status"`
	ScheduledFor     string `json:"scheduledFor,omitempty"`
	AttemptCount     int    `json:"attemptCount"`
	LastError        string `json:"lastError,omitempty"`
	SentAt           string `json:"sentAt,omitempty"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

// ListQueueResponse is the queue listing response
type ListQueueResponse struct {
	Items      []QueueItemDTO `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// RefreshQueueResponse reports how many items a refresh materialized
type RefreshQueueResponse struct {
	EnrollmentID string `json:"enrollmentId"`
	Created      int    `json:"created"`
}

// CreateSyncRequest asks for a lead sync of one customer's source
type CreateSyncRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
	SourceURL  string `json:"sourceUrl" binding:"required,url"`
}

// SyncStateDTO is the wire shape of a customer's sync state
type SyncStateDTO struct {
	CustomerID    string `json:"customerId"`
	SourceURL     string `json:"sourceUrl"`
	Running       bool   `json:"running"`
	LastAttemptAt string `json:"lastAttemptAt,omitempty"`
	LastSuccessAt string `json:"lastSuccessAt,omitempty"`
	LastError     string `json:"lastError,omitempty"`
	RowCount      int    `json:"rowCount"`
	LeadCount     int    `json:"leadCount"`
}
