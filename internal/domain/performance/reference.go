package performance

// Reference is a snapshot of a performance taken at the moment it was
// added to a playlist or the play queue. It is intentionally not a live
// pointer into the catalog: the display fields keep working even if the
// catalog entry is later deleted, only playability is affected.
type Reference struct {
	PerformanceID  string `json:"performanceId"`
	SongTitle      string `json:"songTitle"`
	OriginalArtist string `json:"originalArtist"`
	VideoID        string `json:"videoId"`
	StartOffsetSec int    `json:"startOffsetSeconds"`
	EndOffsetSec   int    `json:"endOffsetSeconds,omitempty"` // 0 = play to source end
}
