package notify

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Subscription is one browser push endpoint registered by an operator.
type Subscription struct {
	ID        string    `yaml:"id"`
	Endpoint  string    `yaml:"endpoint"`
	P256dhKey string    `yaml:"p256dh_key"`
	AuthKey   string    `yaml:"auth_key"`
	CreatedAt time.Time `yaml:"created_at"`
}

func NewSubscription(endpoint, p256dh, auth string) *Subscription {
	return &Subscription{
		ID:        ulid.Make().String(),
		Endpoint:  endpoint,
		P256dhKey: p256dh,
		AuthKey:   auth,
		CreatedAt: time.Now(),
	}
}
