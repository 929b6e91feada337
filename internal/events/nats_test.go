package events

import (
	"testing"

	"GreenCampusServer/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "notifications.follow", Subject(domain.NotificationFollow))
	assert.Equal(t, "notifications.friend_request", Subject(domain.NotificationFriendRequest))
}

func TestCloseNilPublisher(t *testing.T) {
	var p *NatsPublisher
	assert.NotPanics(t, p.Close)
}
