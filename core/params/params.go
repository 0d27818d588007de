package params

// QueryParams carries normalized pagination for list operations.
type QueryParams struct {
	PageNumber int
	PageSize   int
	Search     string
}

// NewQueryParams clamps page to >= 1 and size to (0, maxSize], using
// defaultSize when size is not positive.
func NewQueryParams(page, size, defaultSize, maxSize int) QueryParams {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return QueryParams{PageNumber: page, PageSize: size}
}

func (p QueryParams) Offset() int {
	return (p.PageNumber - 1) * p.PageSize
}
