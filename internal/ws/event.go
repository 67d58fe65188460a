package ws

type EventType string

const (
	EventNewsCreated     EventType = "news_created"
	EventNewsUpdated     EventType = "news_updated"
	EventNewsDeleted     EventType = "news_deleted"
	EventEventCreated    EventType = "event_created"
	EventEventUpdated    EventType = "event_updated"
	EventEventDeleted    EventType = "event_deleted"
	EventMemberChanged   EventType = "member_changed"
	EventTimelineChanged EventType = "timeline_changed"
)

// OutgoingEvent — событие живой ленты, уходящее всем подключённым клиентам.
// Payload — типизированная структура или модель, не map[string]any.
type OutgoingEvent struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// DeletedPayload — для событий удаления достаточно id.
type DeletedPayload struct {
	ID string `json:"id"`
}
