package dto

// ErrorResponse is the JSON body returned on failed requests.
//
// Example:
//
//	{"error": "notion: unauthorized (status 401): API token is invalid."}
type ErrorResponse struct {
	Message string `json:"error" example:"failed to query Notion"`
}

// Error implements the error interface.
func (e ErrorResponse) Error() string {
	return e.Message
}

// NewErrorResponse builds an ErrorResponse carrying err's message, or
// fallback when err is nil or has an empty message.
func NewErrorResponse(fallback string, err error) ErrorResponse {
	if err != nil && err.Error() != "" {
		return ErrorResponse{Message: err.Error()}
	}
	return ErrorResponse{Message: fallback}
}
