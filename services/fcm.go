package services

import (
	"context"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// FCMPusher delivers notifications through Firebase Cloud Messaging.
type FCMPusher struct {
	client *messaging.Client
}

// NewFCMPusher initializes the Firebase app from a service-account file.
// Returns nil (no error) when credentialsFile is empty so callers can run
// without a configured provider.
func NewFCMPusher(ctx context.Context, credentialsFile string) (*FCMPusher, error) {
	if credentialsFile == "" {
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, errors.Wrap(err, "initialize firebase app")
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initialize fcm client")
	}

	return &FCMPusher{client: client}, nil
}

func (p *FCMPusher) Push(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	msg := &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:   data,
		Tokens: tokens,
	}

	response, err := p.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return nil, errors.Wrap(err, "send multicast")
	}

	var invalid []string
	for i, result := range response.Responses {
		if result.Success || i >= len(tokens) {
			continue
		}
		if messaging.IsRegistrationTokenNotRegistered(result.Error) ||
			messaging.IsInvalidArgument(result.Error) {
			invalid = append(invalid, tokens[i])
		}
	}

	log.Printf("FCM push: %d success, %d failure", response.SuccessCount, response.FailureCount)
	return invalid, nil
}
