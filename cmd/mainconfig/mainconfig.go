package mainconfig

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	appconfig "github.com/wolfman30/eyecare-clinic-api/internal/config"
)

const appID = "eyecare-clinic-api"

// ClinicServices lists the AWS services the configured clinic features
// need: S3 for the appointment export archive, SQS for the booking alert
// queue and SES for alert email when SendGrid is not set.
func ClinicServices(cfg *appconfig.Config) []string {
	if cfg == nil {
		return nil
	}
	var services []string
	if cfg.ExportArchiveBucket != "" {
		services = append(services, s3.ServiceID)
	}
	if cfg.NotifyQueueURL != "" {
		services = append(services, sqs.ServiceID)
	}
	if cfg.SESFromEmail != "" && cfg.SendGridAPIKey == "" && len(cfg.NotifyEmailRecipients) > 0 {
		services = append(services, sesv2.ServiceID)
	}
	return services
}

// LoadAWSConfig builds the SDK config for the clinic's AWS integrations. It
// returns nil when no integration is configured. AWS_ENDPOINT_OVERRIDE
// (LocalStack) applies only to the services ClinicServices reports.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (*aws.Config, error) {
	services := ClinicServices(cfg)
	if len(services) == 0 {
		return nil, nil
	}

	loaders := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.AWSRegion),
		config.WithAppID(appID),
	}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, err
	}

	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		overridden := make(map[string]bool, len(services))
		for _, svc := range services {
			overridden[svc] = true
		}
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				if !overridden[service] {
					return aws.Endpoint{}, &aws.EndpointNotFoundError{}
				}
				return aws.Endpoint{
					URL:           endpoint,
					PartitionID:   "aws",
					SigningRegion: cfg.AWSRegion,
				}, nil
			},
		)
	}

	return &awsCfg, nil
}
