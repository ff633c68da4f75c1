package model

// ActivityTotals counts ledger records falling inside each period.
type ActivityTotals struct {
	Day   int
	Week  int
	Month int
	All   int
}

// ActivityActor is one moderator's share of a guild's ledger.
type ActivityActor struct {
	ActorID string
	Day     int
	Week    int
	Month   int
	All     int
}

// ActivityReport is the per-guild moderator activity summary.
type ActivityReport struct {
	Totals ActivityTotals
	Actors []ActivityActor
}
