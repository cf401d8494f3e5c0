package domain

// CallStats aggregates the call table for one user.
type CallStats struct {
	Total           int
	Successful      int
	Missed          int
	AverageDuration float64
}

// LeadInteraction is a lead-facing communication joined with its lead.
// LeadName is "Unknown" and LeadEmail nil once the lead has been deleted.
type LeadInteraction struct {
	Communication
	LeadName  string
	LeadEmail *string
}
