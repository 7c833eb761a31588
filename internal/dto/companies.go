package dto

// ListFilter contains query parameters for company listing endpoints.
type ListFilter struct {
	Q       string
	Page    int
	PerPage int
}
