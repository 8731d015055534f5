// Package performance provides the performance catalog entities.
package performance

// Performance represents one recorded instance of a song being sung,
// with start/end offsets into a source video.
type Performance struct {
	ID             string // Performance ID (catalog key)
	SongTitle      string // Song title
	OriginalArtist string // Original artist of the song
	VideoID        string // Source video ID (embed widget key)
	StartOffsetSec int    // Start offset into the source video, seconds
	EndOffsetSec   int    // End offset, seconds (0 = play to source end)
	SungAt         string // Date the performance was sung (display only)
}

// Ref returns a denormalized reference snapshot of the performance.
func (p *Performance) Ref() Reference {
	return Reference{
		PerformanceID:  p.ID,
		SongTitle:      p.SongTitle,
		OriginalArtist: p.OriginalArtist,
		VideoID:        p.VideoID,
		StartOffsetSec: p.StartOffsetSec,
		EndOffsetSec:   p.EndOffsetSec,
	}
}
