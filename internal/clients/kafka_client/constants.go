package kafka_client

import "time"

const (
	KAFKA_TOPIC_FETCH_REQUESTS  = "comment-fetch-requests"  // entities due for a pagination cycle
	KAFKA_TOPIC_BATCH_INGESTED  = "comment-batch-ingested"  // durably stored pages awaiting enrichment
	KAFKA_TOPIC_AGGREGATION_DUE = "aggregation-due"         // entities with newly enriched comments
)

const (
	BATCH_SIZE    = 50
	BATCH_TIMEOUT = 5 * time.Second
	MAX_RETRIES   = 5
	RETRY_DELAY   = 2 * time.Second
)
