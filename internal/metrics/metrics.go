package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementsTotal counts successfully committed close-table
	// operations.
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_settlements_total",
		Help: "Number of tables settled.",
	})

	// ClaimConflictsTotal counts self-service claims that lost the
	// conditional write.
	ClaimConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_claim_conflicts_total",
		Help: "Number of table claims rejected because the table was already taken.",
	})

	// LedgerEntriesTotal counts posted cash ledger entries by type.
	LedgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_ledger_entries_total",
		Help: "Number of cash ledger entries posted.",
	}, []string{"type"})
)
