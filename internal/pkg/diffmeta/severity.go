package diffmeta

// Severity classes, coarsest useful granularity for reporting.
const (
	SeverityCritical = "critical"
	SeverityNotable  = "notable"
	SeverityMinor    = "minor"
)

// Priority tiers carried on tracked assets, most urgent first.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// size-delta thresholds (percent) above which a structurally silent change is
// still notable, keyed by the asset's priority tier
var silentChangeThresholds = map[string]int{
	PriorityCritical: 5,
	PriorityHigh:     10,
	PriorityMedium:   50,
}

// ClassifySeverity ranks a change. Removed functions or removed selectors are
// always critical; added or modified structure is notable; without structural
// signal the size-delta percentage decides, with tighter thresholds for higher
// priority tiers.
func ClassifySeverity(md Metadata, changePercent int, priorityTier string) string {
	if len(md.RemovedFunctions) > 0 || len(md.CSSSelectorsRemoved) > 0 {
		return SeverityCritical
	}
	if len(md.AddedFunctions) > 0 || len(md.ModifiedFunctions) > 0 || len(md.CSSSelectorsAdded) > 0 {
		return SeverityNotable
	}
	if threshold, ok := silentChangeThresholds[priorityTier]; ok && changePercent > threshold {
		return SeverityNotable
	}
	return SeverityMinor
}
