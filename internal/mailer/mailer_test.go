package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderNotification(t *testing.T) {
	msg, err := RenderNotification(NotificationData{
		Event:    "record.updated",
		Resource: "customer-classes",
		Name:     "vip",
		Status:   "FOR_APPROVAL",
		Actor:    "alice",
		TenantID: "acme",
	}, []string{"approvers@example.com"})
	require.NoError(t, err)

	assert.Equal(t, []string{"approvers@example.com"}, msg.To)
	assert.Equal(t, `[acme] customer-classes "vip" needs review`, msg.Subject)
	assert.Contains(t, msg.Body, `alice submitted a change on customer-classes "vip"`)
	assert.Contains(t, msg.Body, "status FOR_APPROVAL")
}
