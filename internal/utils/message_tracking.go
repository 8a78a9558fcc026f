package utils

import (
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

var messageMap sync.Map

// TrackMessage remembers which Kafka message carried work for an entity so
// its offset can be committed once that work is durable.
func TrackMessage(entityID string, msg *kafka.Message) {
	messageMap.Store(entityID, msg)
}

func GetMessageForEntity(entityID string) (*kafka.Message, bool) {
	msg, ok := messageMap.Load(entityID)
	if !ok {
		return nil, false
	}
	messageMap.Delete(entityID)
	return msg.(*kafka.Message), true
}
