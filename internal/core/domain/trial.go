package domain

// TrialSummary is a row returned by trial finder queries.
type TrialSummary struct {
	NCTID      string `json:"nct_id"`
	BriefTitle string `json:"brief_title"`
}
