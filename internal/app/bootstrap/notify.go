package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/eyecare-clinic-api/internal/archive"
	appconfig "github.com/wolfman30/eyecare-clinic-api/internal/config"
	"github.com/wolfman30/eyecare-clinic-api/internal/messaging"
	"github.com/wolfman30/eyecare-clinic-api/internal/notify"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// BuildEmailSender picks SendGrid, then SES, then a log-only sender. It
// returns nil when no one is configured to receive alert emails.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if cfg == nil || len(cfg.NotifyEmailRecipients) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SendGridAPIKey != "" {
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
	}
	if cfg.SESFromEmail != "" && awsCfg != nil {
		if s := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
	}
	logger.Warn("no email provider configured; alert emails will only be logged")
	return notify.NewLogEmailSender(logger)
}

// BuildSinks assembles the relay's delivery channels. The hub-backed sinks
// are always present; email and queue sinks only when configured.
func BuildSinks(cfg *appconfig.Config, hub notify.Broadcaster, composer *messaging.Composer, awsCfg *aws.Config, logger *logging.Logger) []notify.Sink {
	sinks := []notify.Sink{
		notify.NewMessagingSink(hub, composer, cfg.AdminWhatsAppNumber),
		notify.NewPlatformAlertSink(hub),
		notify.NewSoundSink(hub),
	}
	if email := notify.NewEmailSink(BuildEmailSender(cfg, awsCfg, logger), cfg.NotifyEmailRecipients); email != nil {
		sinks = append(sinks, email)
	}
	if cfg.NotifyQueueURL != "" && awsCfg != nil {
		if q := notify.NewQueueSink(sqs.NewFromConfig(*awsCfg), cfg.NotifyQueueURL); q != nil {
			sinks = append(sinks, q)
		}
	}
	return sinks
}

// BuildArchiveStore returns the S3 export archive, or nil when no bucket is
// configured.
func BuildArchiveStore(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *archive.Store {
	if cfg == nil || cfg.ExportArchiveBucket == "" || awsCfg == nil {
		return nil
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		// LocalStack only serves path-style bucket addressing.
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return archive.NewStore(client, cfg.ExportArchiveBucket, logger)
}
