package domain

import "fmt"

// ValidationError names the offending field (and entry, when the failure is
// about one entry of a batch) so the caller can surface it.
type ValidationError struct {
	Field   string
	EntryID uint
	Message string
}

func (e *ValidationError) Error() string {
	if e.EntryID != 0 {
		return fmt.Sprintf("entry %d: %s: %s", e.EntryID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags an ambiguous but non-fatal condition discovered during
// result computation, e.g. overlapping prize ranges or tied betting ranks.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnPrizeOverlap   = "prize_range_overlap"
	WarnBettingTie     = "betting_rank_tie"
	WarnNothingToStart = "nothing_to_release"
)
