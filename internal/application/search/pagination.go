package search

// ceilDiv 向上取整除法，b 必须为正
func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// newResultPage 构造分页结果并维护分页不变量
func newResultPage(results []SearchResult, total int64, page, limit int, method Method) *ResultPage {
	if results == nil {
		results = []SearchResult{}
	}
	if total < int64(len(results)) {
		total = int64(len(results))
	}

	totalPages := 0
	if limit > 0 && total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return &ResultPage{
		Results:      results,
		Total:        total,
		Page:         page,
		Limit:        limit,
		TotalPages:   totalPages,
		HasNext:      int64(page)*int64(limit) < total,
		HasPrev:      page > 1,
		SearchMethod: method,
	}
}
