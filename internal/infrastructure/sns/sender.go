package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/patrickmn/go-cache"
	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/infrastructure/push"
)

const providerName = "sns"

// API is the subset of *sns.Client the sender calls.
type API interface {
	CreatePlatformEndpoint(ctx context.Context, in *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sender delivers mobile pushes through an SNS platform application (FCM or
// APNs). Device tokens are registered as platform endpoints on first use and
// the endpoint ARNs are cached.
type Sender struct {
	client      API
	appARN      string
	concurrency int
	endpoints   *cache.Cache
}

func NewSender(client API, platformAppARN string, concurrency int) (*Sender, error) {
	if platformAppARN == "" {
		return nil, errors.New("sns platform application arn is not configured")
	}
	return &Sender{
		client:      client,
		appARN:      platformAppARN,
		concurrency: concurrency,
		endpoints:   cache.New(24*time.Hour, time.Hour),
	}, nil
}

// NewClient builds an SNS client, honouring a LocalStack endpoint override.
func NewClient(awsCfg aws.Config, endpoint string) *sns.Client {
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func (s *Sender) Send(ctx context.Context, tokens []string, msg domain.PushMessage) (domain.PushReport, error) {
	body, err := platformMessage(msg)
	if err != nil {
		return domain.PushReport{}, err
	}
	return push.FanOut(ctx, providerName, tokens, s.concurrency, func(ctx context.Context, token string) error {
		arn, err := s.endpointFor(ctx, token)
		if err != nil {
			return err
		}
		_, err = s.client.Publish(ctx, &sns.PublishInput{
			TargetArn:        aws.String(arn),
			Message:          aws.String(body),
			MessageStructure: aws.String("json"),
		})
		if err != nil {
			s.endpoints.Delete(token)
			var disabled *snstypes.EndpointDisabledException
			if errors.As(err, &disabled) {
				return fmt.Errorf("publish: %w: %w", domain.ErrTokenGone, err)
			}
			return fmt.Errorf("publish: %w", err)
		}
		return nil
	})
}

func (s *Sender) endpointFor(ctx context.Context, token string) (string, error) {
	if v, ok := s.endpoints.Get(token); ok {
		return v.(string), nil
	}
	out, err := s.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(s.appARN),
		Token:                  aws.String(token),
	})
	if err != nil {
		return "", fmt.Errorf("create platform endpoint: %w", err)
	}
	arn := aws.ToString(out.EndpointArn)
	s.endpoints.SetDefault(token, arn)
	return arn, nil
}

// platformMessage builds the per-platform JSON envelope SNS expects when
// MessageStructure is "json".
func platformMessage(msg domain.PushMessage) (string, error) {
	gcm, err := json.Marshal(map[string]any{
		"notification": map[string]string{"title": msg.Title, "body": msg.Body},
		"data":         msg.Data,
	})
	if err != nil {
		return "", fmt.Errorf("marshal gcm payload: %w", err)
	}
	apns, err := json.Marshal(map[string]any{
		"aps":  map[string]any{"alert": map[string]string{"title": msg.Title, "body": msg.Body}},
		"data": msg.Data,
	})
	if err != nil {
		return "", fmt.Errorf("marshal apns payload: %w", err)
	}
	out, err := json.Marshal(map[string]string{
		"default":      msg.Body,
		"GCM":          string(gcm),
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	if err != nil {
		return "", fmt.Errorf("marshal sns message: %w", err)
	}
	return string(out), nil
}
