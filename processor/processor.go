package processor

// SessionCloses returns the intraday close column from the session open
// onwards, excluding premarket bars
func (c *Context) SessionCloses() []float64 {
	return c.IntradayLookback.Closes()[c.sessionStart():]
}

// SessionVolumes returns the intraday volume column from the session open
// onwards
func (c *Context) SessionVolumes() []float64 {
	return c.IntradayLookback.Volumes()[c.sessionStart():]
}

func (c *Context) sessionStart() int {
	if c.SessionOpenIndex < 0 || c.SessionOpenIndex > c.IntradayLookback.Len() {
		return c.IntradayLookback.Len()
	}
	return c.SessionOpenIndex
}
