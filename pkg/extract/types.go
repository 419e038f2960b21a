// Package extract locates an image on a web page and gathers the
// surrounding HTML context used to prompt the captioning model.
package extract

// ExtractedContext is the result of a page extraction. It is produced
// once per context-menu activation and consumed by the orchestrator.
type ExtractedContext struct {
	ImageURL    string `json:"image_url"`
	OriginalAlt string `json:"original_alt"`
	HTMLContext string `json:"html_context"`
	WPPostID    string `json:"wp_post_id,omitempty"`
	IsWordPress bool   `json:"is_wordpress"`
	ImageBase64 string `json:"image_base64"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
}

// ErrorType classifies extraction failures
type ErrorType string

const (
	ErrConnection      ErrorType = "connection_error"
	ErrElementNotFound ErrorType = "element_not_found"
	ErrImageLoad       ErrorType = "image_load_error"
	ErrInvalidURL      ErrorType = "invalid_url"
	ErrParseFailure    ErrorType = "parse_failure"
)

// ExtractError is a typed extraction error
type ExtractError struct {
	Type       ErrorType
	Message    string
	Suggestion string
}

func (e *ExtractError) Error() string {
	return e.Message
}

// ForUser returns a user-facing error message
func (e *ExtractError) ForUser() string {
	if e.Suggestion != "" {
		return e.Message + ". " + e.Suggestion
	}
	return e.Message
}
