package user

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/cart-pricing/internal/domain/notify"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// User is a customer. Tier selects the discount policy applied to the
// user's orders and Channel the preferred notification transport.
type User struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Tier    pricing.Kind
	Channel notify.Channel
}

// Recipient returns the address for the user's preferred channel.
func (u *User) Recipient() string {
	if u.Channel == notify.ChannelSMS {
		return u.Phone
	}
	return u.Email
}

// Repository defines persistence operations for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Upsert(ctx context.Context, u User) error
}
