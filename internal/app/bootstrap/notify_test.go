package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/eyecare-clinic-api/internal/config"
	"github.com/wolfman30/eyecare-clinic-api/internal/messaging"
	"github.com/wolfman30/eyecare-clinic-api/internal/notify"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

type nopHub struct{}

func (nopHub) Broadcast(notify.Event) error { return nil }

func testAWSConfig() *aws.Config {
	return &aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("test", "test", ""),
	}
}

func sinkKinds(sinks []notify.Sink) []string {
	var kinds []string
	for _, s := range sinks {
		kinds = append(kinds, s.Kind())
	}
	return kinds
}

func testComposer(t *testing.T) *messaging.Composer {
	t.Helper()
	c, err := messaging.NewComposer("", "https://clinic.example", time.UTC)
	require.NoError(t, err)
	return c
}

func TestBuildSinksDefaults(t *testing.T) {
	cfg := &appconfig.Config{AdminWhatsAppNumber: "919876543210"}

	sinks := BuildSinks(cfg, nopHub{}, testComposer(t), nil, logging.New("error"))
	assert.Equal(t, []string{"messaging", "platform_alert", "sound"}, sinkKinds(sinks))
}

func TestBuildSinksOptionalChannels(t *testing.T) {
	cfg := &appconfig.Config{
		AdminWhatsAppNumber:   "919876543210",
		NotifyEmailRecipients: []string{"ops@clinic.example"},
		NotifyQueueURL:        "http://localhost:4566/000000000000/alerts",
	}

	sinks := BuildSinks(cfg, nopHub{}, testComposer(t), testAWSConfig(), logging.New("error"))
	assert.Equal(t, []string{"messaging", "platform_alert", "sound", "email", "queue"}, sinkKinds(sinks))
}

func TestBuildSinksQueueNeedsAWS(t *testing.T) {
	cfg := &appconfig.Config{
		AdminWhatsAppNumber: "919876543210",
		NotifyQueueURL:      "http://localhost:4566/000000000000/alerts",
	}

	sinks := BuildSinks(cfg, nopHub{}, testComposer(t), nil, logging.New("error"))
	assert.NotContains(t, sinkKinds(sinks), "queue")
}

func TestBuildEmailSenderSelection(t *testing.T) {
	logger := logging.New("error")

	assert.Nil(t, BuildEmailSender(&appconfig.Config{}, nil, logger))

	sg := BuildEmailSender(&appconfig.Config{
		NotifyEmailRecipients: []string{"ops@clinic.example"},
		SendGridAPIKey:        "SG.key",
		SendGridFromEmail:     "alerts@clinic.example",
	}, nil, logger)
	assert.IsType(t, &notify.SendGridSender{}, sg)

	ses := BuildEmailSender(&appconfig.Config{
		NotifyEmailRecipients: []string{"ops@clinic.example"},
		SESFromEmail:          "alerts@clinic.example",
	}, testAWSConfig(), logger)
	assert.IsType(t, &notify.SESSender{}, ses)

	fallback := BuildEmailSender(&appconfig.Config{
		NotifyEmailRecipients: []string{"ops@clinic.example"},
	}, nil, logger)
	assert.IsType(t, &notify.LogEmailSender{}, fallback)
	require.NoError(t, fallback.Send(context.Background(), notify.EmailMessage{To: "ops@clinic.example", Subject: "hi"}))
}

func TestBuildArchiveStore(t *testing.T) {
	logger := logging.New("error")
	assert.Nil(t, BuildArchiveStore(&appconfig.Config{}, testAWSConfig(), logger))
	assert.Nil(t, BuildArchiveStore(&appconfig.Config{ExportArchiveBucket: "exports"}, nil, logger))

	store := BuildArchiveStore(&appconfig.Config{ExportArchiveBucket: "exports"}, testAWSConfig(), logger)
	require.NotNil(t, store)
	assert.True(t, store.Enabled())
}
