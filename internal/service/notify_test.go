package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/templui/gatekeeper/internal/service"
)

func TestNewNotifierPicksDelivery(t *testing.T) {
	assert.IsType(t, service.LogNotifier{}, service.NewNotifier(true, "key", "from@example.com", "to@example.com"))
	assert.IsType(t, service.LogNotifier{}, service.NewNotifier(false, "", "from@example.com", "to@example.com"))
	assert.IsType(t, service.LogNotifier{}, service.NewNotifier(false, "key", "from@example.com", ""))
	assert.IsType(t, &service.EmailNotifier{}, service.NewNotifier(false, "key", "from@example.com", "to@example.com"))
}

func TestLogAndNopNotifiersNeverFail(t *testing.T) {
	note := service.Notification{Kind: service.NotificationDue, Subject: "1 goal due", GoalIDs: []string{"g1"}}
	assert.NoError(t, service.LogNotifier{}.Notify(context.Background(), note))
	assert.NoError(t, service.NopNotifier{}.Notify(context.Background(), note))
}
