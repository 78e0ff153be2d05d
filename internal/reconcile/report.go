package reconcile

// Outcome tags the fate of one import row.
type Outcome string

const (
	// OutcomeCreated means a new product was created from the row.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means an existing product was overwritten from the row.
	OutcomeUpdated Outcome = "updated"
	// OutcomeSkippedDuplicate means the SKU already had a record and the row was left alone.
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
	// OutcomeRejected means the row failed validation and was excluded.
	OutcomeRejected Outcome = "rejected"
)

// RowDetail records the per-row outcome for the caller's display.
type RowDetail struct {
	Line    int     `json:"line"`
	SKU     string  `json:"sku"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Report aggregates a reconciliation run. It is a pure value: building it has
// no side effects beyond the store mutations already applied per row.
type Report struct {
	Total    int         `json:"total"`
	Created  int         `json:"created"`
	Updated  int         `json:"updated"`
	Skipped  int         `json:"skipped"`
	Rejected int         `json:"rejected"`
	Details  []RowDetail `json:"details"`
}

func (r *Report) add(detail RowDetail) {
	r.Total++
	switch detail.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkippedDuplicate:
		r.Skipped++
	case OutcomeRejected:
		r.Rejected++
	}
	r.Details = append(r.Details, detail)
}

// SuccessRate returns the fraction of rows that were created or updated.
func (r Report) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Created+r.Updated) / float64(r.Total)
}
