package notify

import (
	"context"
	"fmt"
	"strings"

	"contract-wizard/internal/common/config"
	"contract-wizard/internal/common/logger"
	"contract-wizard/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// EmailSender is satisfied by SESClient.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is satisfied by SNSClient.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// CompletionNotifier sends a best-effort notification when the generation
// pipeline finishes. Failures are logged and swallowed; notification is
// never allowed to fail a generation that already succeeded.
type CompletionNotifier struct {
	cfg    config.NotificationConfig
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewCompletionNotifier(cfg config.NotificationConfig, email EmailSender, sms SMSSender, log logger.Logger) *CompletionNotifier {
	return &CompletionNotifier{cfg: cfg, email: email, sms: sms, logger: log}
}

// NotifyGenerated reports the generated documents to the client contacts.
func (n *CompletionNotifier) NotifyGenerated(ctx context.Context, draft *models.ProjectDraft, docs []models.GeneratedContractRef) {
	if n == nil {
		return
	}

	if n.cfg.Email.Enabled && n.email != nil && draft.ClientEmail != "" {
		if err := n.sendEmail(ctx, draft, docs); err != nil {
			n.logger.Warn("Completion email failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if n.cfg.SMS.Enabled && n.sms != nil && draft.ClientPhone != "" {
		if err := n.sendSMS(ctx, draft, docs); err != nil {
			n.logger.Warn("Completion SMS failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func (n *CompletionNotifier) sendEmail(ctx context.Context, draft *models.ProjectDraft, docs []models.GeneratedContractRef) error {
	var lines []string
	for _, doc := range docs {
		lines = append(lines, fmt.Sprintf("- %s: %s", doc.DocumentType, doc.Filename))
	}
	body := fmt.Sprintf(
		"Contract documents for project %s (%s) are ready:\n\n%s\n",
		draft.ProjectNumber, draft.ProjectName, strings.Join(lines, "\n"))

	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{draft.ClientEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{
				Data: aws.String(fmt.Sprintf("Contract documents ready for %s", draft.ProjectName)),
			},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}

func (n *CompletionNotifier) sendSMS(ctx context.Context, draft *models.ProjectDraft, docs []models.GeneratedContractRef) error {
	message := fmt.Sprintf("Your %d contract document(s) for project %s are ready for review.",
		len(docs), draft.ProjectNumber)

	_, err := n.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(draft.ClientPhone),
		Message:     aws.String(message),
	})
	return err
}
