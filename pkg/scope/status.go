package scope

// ChannelStatus is the reported state of one channel.
type ChannelStatus struct {
	Index         int     `json:"index"`
	Enabled       bool    `json:"enabled"`
	VScaleIndex   int     `json:"vscale_index"`
	VScale        float64 `json:"vscale"`
	Label         string  `json:"label"`
	OffsetPercent float64 `json:"offset"`
	Pending       bool    `json:"pending"`
}

// Status is a point-in-time copy of the session, safe to hand to other
// goroutines.
type Status struct {
	Mode        string          `json:"mode"`
	Online      bool            `json:"online"`
	Active      int             `json:"active"`
	HScaleIndex int             `json:"hscale_index"`
	HScaleUS    int             `json:"hscale_us"`
	HScale      string          `json:"hscale"`
	Frames      uint64          `json:"frames"`
	Sweeps      uint64          `json:"sweeps"`
	Channels    []ChannelStatus `json:"channels"`
}
