package models

import "time"

// User is the identity gateway's view of the signed-in user. The engine
// never stores users itself; this is a pass-through of the gateway's
// session payload, used to gate access, not to scope photo notes.
type User struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	DisplayName      string           `json:"displayName,omitempty"`
	PhotoURL         string           `json:"photoUrl,omitempty"`
	SubscriptionType SubscriptionType `json:"subscriptionType"`
	CreatedAt        time.Time        `json:"createdAt"`
	LastLoginAt      time.Time        `json:"lastLoginAt"`
}

// SubscriptionType is the user's subscription tier.
type SubscriptionType string

const (
	SubscriptionFree           SubscriptionType = "FREE"
	SubscriptionRepeatOnly     SubscriptionType = "REPEAT_ONLY"
	SubscriptionLiteratureOnly SubscriptionType = "LITERATURE_ONLY"
	SubscriptionPremiumAll     SubscriptionType = "PREMIUM_ALL"
)

// ParseSubscriptionType decodes a subscription tier, defaulting to FREE
// for unknown values.
func ParseSubscriptionType(tier string) SubscriptionType {
	switch SubscriptionType(tier) {
	case SubscriptionRepeatOnly, SubscriptionLiteratureOnly, SubscriptionPremiumAll:
		return SubscriptionType(tier)
	default:
		return SubscriptionFree
	}
}
