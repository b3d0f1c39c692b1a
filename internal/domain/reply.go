package domain

import "time"

// Reply is an inbound message pulled from the application mailbox.
type Reply struct {
	Subject    string
	Body       string
	Sender     string
	ReceivedAt time.Time
}

// ReconcileResult describes what reconciliation did with one reply.
type ReconcileResult struct {
	Matched  bool
	Identity string
	Response ResponseStatus
	// Drafted is true when a follow-up draft was produced for a positive
	// reply. Draft failure does not undo the ledger update.
	Drafted bool
}
