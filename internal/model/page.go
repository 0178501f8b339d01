package model

// Page метаданные пагинации
type Page struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPage считает количество страниц
func NewPage(total, page, limit int) Page {
	totalPages := 0
	if limit > 0 {
		totalPages = total / limit
		if total%limit > 0 {
			totalPages++
		}
	}
	return Page{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}
