package models

// -----------------------------------------------------------------------------
// Gateway frame pushed to rendering clients
// -----------------------------------------------------------------------------

const (
	FrameInitial = "INITIAL"
	FrameUpdate  = "UPDATE"
	FrameLoading = "LOADING"
)

// MRenderFrame carries one ordered series to the chart widget. Points are
// ascending by timestamp; widgets redraw without animation on UPDATE frames.
type MRenderFrame struct {
	Type       string         `json:"type"` // INITIAL, UPDATE or LOADING
	Subject    string         `json:"subject"`
	Resolution string         `json:"resolution"`
	Points     []MSeriesPoint `json:"points"`
	Timestamp  int64          `json:"timestamp"`
}
