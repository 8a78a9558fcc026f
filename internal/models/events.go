package models

// FetchRequest asks the fetch consumer to run one pagination cycle for an
// entity. Delivered at least once; the checkpoint manager makes duplicates
// harmless.
type FetchRequest struct {
	EntityID string `json:"entity_id"`
}

// BatchIngested announces that a page of comments is durably stored and
// ready for enrichment. Carries the dedup keys of that page.
type BatchIngested struct {
	EntityID  string   `json:"entity_id"`
	DedupKeys []string `json:"dedup_keys"`
}

// AggregationDue asks the aggregation consumer to fold newly enriched
// comments for an entity. Redeliveries are no-ops once the checkpoint has
// advanced past the items that triggered them.
type AggregationDue struct {
	EntityID string `json:"entity_id"`
}
