package history

// Comparison expresses how a fresh run relates to a stored one.
// Percentages are relative to the previous figures; a previous value of
// zero leaves the percentage at zero rather than dividing by it.
type Comparison struct {
	Previous        Entry
	DownloadPct     float64
	UploadPct       float64
	IdleMeanDeltaMs float64
}

// Compare measures a new entry against a previous one.
func Compare(current, previous Entry) Comparison {
	c := Comparison{Previous: previous}
	if previous.DownloadBps > 0 {
		c.DownloadPct = (current.DownloadBps - previous.DownloadBps) / previous.DownloadBps * 100
	}
	if previous.UploadBps > 0 {
		c.UploadPct = (current.UploadBps - previous.UploadBps) / previous.UploadBps * 100
	}
	c.IdleMeanDeltaMs = current.IdleMeanMs - previous.IdleMeanMs
	return c
}
