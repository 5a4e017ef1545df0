package events

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Publisher publishes typed engagement events on a Bus. Publishing is
// fire-and-forget relative to the triggering request: a publish failure is
// logged, never surfaced to the user, because the durable write has
// already committed.
type Publisher struct {
	bus Bus
}

// NewPublisher creates a new publisher
func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) publish(subject string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to marshal event")
		return
	}
	if err := p.bus.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish event")
		return
	}
	log.Debug().Str("subject", subject).Msg("Event published")
}

// PostCreated publishes a post.created event
func (p *Publisher) PostCreated(event PostCreatedEvent) {
	p.publish(SubjectPostCreated, event)
}

// PostDeleted publishes a post.deleted event
func (p *Publisher) PostDeleted(event PostDeletedEvent) {
	p.publish(SubjectPostDeleted, event)
}

// PostLiked publishes a post.liked event
func (p *Publisher) PostLiked(event PostLikedEvent) {
	p.publish(SubjectPostLiked, event)
}

// PostCommented publishes a post.commented event
func (p *Publisher) PostCommented(event PostCommentedEvent) {
	p.publish(SubjectPostCommented, event)
}

// ProfileFollowed publishes a profile.followed event
func (p *Publisher) ProfileFollowed(event ProfileFollowedEvent) {
	p.publish(SubjectProfileFollowed, event)
}

// DecodeEvent unmarshals an event payload
func DecodeEvent(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	return nil
}
