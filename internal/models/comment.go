package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ProcessedAtLayout is a fixed-width UTC timestamp layout so that DynamoDB's
// lexical string comparison on processed_at is also a time comparison.
const ProcessedAtLayout = "2006-01-02T15:04:05.000000"

// RawComment is a single comment tuple as delivered by the comment source,
// before it has an identity in our store.
type RawComment struct {
	Text        string `json:"text"`
	Author      string `json:"author"`
	PublishedAt string `json:"published_at"`
}

// Comment is the durable record for one comment. A comment is created once by
// dedup ingestion, mutated once by sentiment enrichment, and never deleted.
type Comment struct {
	EntityID    string `json:"entity_id" dynamodbav:"entity_id"`
	DedupKey    string `json:"dedup_key" dynamodbav:"dedup_key"`
	NaturalKey  string `json:"natural_key" dynamodbav:"natural_key"`
	Text        string `json:"text" dynamodbav:"comment_text"`
	Author      string `json:"author" dynamodbav:"author"`
	PublishedAt string `json:"published_at" dynamodbav:"published_at"`

	Sentiment   *SentimentScore `json:"sentiment,omitempty" dynamodbav:"sentiment,omitempty"`
	ProcessedAt string          `json:"processed_at,omitempty" dynamodbav:"processed_at,omitempty"`
}

// SentimentScore holds the classifier's magnitudes for the four sentiment
// categories plus the dominant label. Magnitudes roughly sum to 1.
type SentimentScore struct {
	Label    string  `json:"label" dynamodbav:"label"`
	Positive float64 `json:"positive" dynamodbav:"positive"`
	Negative float64 `json:"negative" dynamodbav:"negative"`
	Neutral  float64 `json:"neutral" dynamodbav:"neutral"`
	Mixed    float64 `json:"mixed" dynamodbav:"mixed"`
}

const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
	SentimentMixed    = "MIXED"
)

// NaturalKey derives the source-side identity of a raw comment: the publish
// timestamp plus a short hash of the text, so two comments published in the
// same instant still get distinct keys.
func (rc RawComment) NaturalKey() string {
	textHash := sha256.Sum256([]byte(rc.Text))
	return fmt.Sprintf("%s:%s", rc.PublishedAt, hex.EncodeToString(textHash[:])[:12])
}

// DedupKey returns the stable storage identity for a comment of the given
// entity. Identical inputs always hash to the same key, which is what makes
// redelivered batches upsert into no-ops.
func DedupKey(entityID, naturalKey string) string {
	sum := sha256.Sum256([]byte(entityID + "_" + naturalKey))
	return hex.EncodeToString(sum[:])
}
