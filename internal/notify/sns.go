// internal/notify/sns.go
package notify

import (
	"context"
	"encoding/json"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	commonaws "nearby-engine/internal/common/aws"
	commonerrors "nearby-engine/internal/common/errors"
	"nearby-engine/internal/models"
)

// SNSPublisher is the slice of the SNS API the channel needs; satisfied by
// the common SNS client and by mocks.
type SNSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SNSChannel delivers notifications through an SNS topic. The per-match tag
// rides along as a message attribute so downstream consumers can de-duplicate
// at their level too.
type SNSChannel struct {
	publisher SNSPublisher
	topicARN  string
}

func NewSNSChannel(ctx context.Context, region, topicARN string) (*SNSChannel, error) {
	client, err := commonaws.NewSNSClient(ctx, region)
	if err != nil {
		return nil, err
	}
	return &SNSChannel{publisher: client, topicARN: topicARN}, nil
}

// NewSNSChannelWithPublisher wires an existing publisher, used in tests.
func NewSNSChannelWithPublisher(publisher SNSPublisher, topicARN string) *SNSChannel {
	return &SNSChannel{publisher: publisher, topicARN: topicARN}
}

func (c *SNSChannel) Send(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return commonerrors.NewNotificationSendFailedError(err)
	}

	_, err = c.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(c.topicARN),
		Subject:  awssdk.String(n.Title),
		Message:  awssdk.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"tag": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(n.Tag),
			},
		},
	})
	if err != nil {
		return commonerrors.NewNotificationSendFailedError(err)
	}
	return nil
}
