package dto

import "github.com/dmarcstack/dmarcstack/internal/enum"

// Event is the envelope every message published to RabbitMQ is wrapped in.
type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	Data       interface{}     `json:"data"`
}

type EventMetadata struct {
	AppSource string `json:"appSource"`
	Timestamp string `json:"timestamp"`
}
