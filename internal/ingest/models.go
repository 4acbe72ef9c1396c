package ingest

// WebhookPayload is the JSON body producers POST. Body is a pointer so a
// present-but-empty body is distinguishable from a missing field.
type WebhookPayload struct {
	ID     string  `json:"id" validate:"required"`
	Sender string  `json:"sender" validate:"required"`
	Body   *string `json:"body" validate:"required"`
}

// Pipeline results, also the label values of the webhook request counter.
const (
	ResultCreated          = "created"
	ResultDuplicate        = "duplicate"
	ResultInvalidSignature = "invalid_signature"
	ResultMalformedPayload = "malformed_payload"
	ResultRateLimited      = "rate_limited"
	ResultError            = "error"
)

// Receipt is what a producer gets back for an accepted submission.
type Receipt struct {
	ID        string `json:"id"`
	Result    string `json:"result"`
	Duplicate bool   `json:"duplicate"`
}
