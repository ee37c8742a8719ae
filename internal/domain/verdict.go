package domain

// FilterVerdict is the outcome of screening one record.
type FilterVerdict struct {
	Blocked     bool     `json:"blocked"`
	NeedsReview bool     `json:"needs_review"`
	Reasons     []string `json:"reasons"`
}

// Block marks the verdict as blocked and records why.
func (v *FilterVerdict) Block(reason string) {
	v.Blocked = true
	v.Reasons = append(v.Reasons, "[BLOCK] "+reason)
}

// Flag marks the verdict for manual review and records why.
func (v *FilterVerdict) Flag(reason string) {
	v.NeedsReview = true
	v.Reasons = append(v.Reasons, "[REVIEW] "+reason)
}

// Safe reports whether the record may be merged.
func (v FilterVerdict) Safe() bool {
	return !v.Blocked && !v.NeedsReview
}
