package user

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenking/cart-pricing/internal/domain/notify"
)

func TestUser_Recipient(t *testing.T) {
	u := &User{Email: "ann@example.com", Phone: "+15550100"}

	assert.Equal(t, "ann@example.com", u.Recipient())

	u.Channel = notify.ChannelEmail
	assert.Equal(t, "ann@example.com", u.Recipient())

	u.Channel = notify.ChannelSMS
	assert.Equal(t, "+15550100", u.Recipient())

	u.Channel = notify.ChannelKafka
	assert.Equal(t, "ann@example.com", u.Recipient())
}
