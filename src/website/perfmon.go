package website

// Perfmon dumps the collected request timings. Admin only; the dump names
// every route and query block verbatim.
func Perfmon(c *RequestContext) ResponseData {
	storage := c.PerfCollector.GetPerfCopy()

	type perfBlock struct {
		Category    string  `json:"category"`
		Description string  `json:"description"`
		DurationMs  float64 `json:"durationMs"`
	}
	type perfRequest struct {
		Route      string      `json:"route"`
		Method     string      `json:"method"`
		Path       string      `json:"path"`
		DurationMs float64     `json:"durationMs"`
		Blocks     []perfBlock `json:"blocks"`
	}

	requests := make([]perfRequest, len(storage.AllRequests))
	for i, run := range storage.AllRequests {
		blocks := make([]perfBlock, len(run.Blocks))
		for j, block := range run.Blocks {
			blocks[j] = perfBlock{
				Category:    block.Category,
				Description: block.Description,
				DurationMs:  block.DurationMs(),
			}
		}
		requests[i] = perfRequest{
			Route:      run.Route,
			Method:     run.Method,
			Path:       run.Path,
			DurationMs: float64(run.End.Sub(run.Start).Nanoseconds()) / 1000 / 1000,
			Blocks:     blocks,
		}
	}

	var res ResponseData
	res.WriteJson(requests)
	return res
}
