package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/insiderfolio/backend/src/config"
	"github.com/username/insiderfolio/backend/src/logger"
	"github.com/username/insiderfolio/backend/src/models"
)

// NewAlertService picks the alert backend from configuration. Incomplete
// mailgun configuration falls back to log-only alerts rather than failing
// startup.
func NewAlertService() AlertService {
	if config.Cfg == nil {
		logger.L.Warn("Configuration not loaded. Alert service defaulting to log-only.")
		return &LogAlertService{}
	}

	provider := strings.ToLower(config.Cfg.AlertProvider)
	logger.L.Info("Initializing alert service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" ||
			config.Cfg.SenderEmail == "" || config.Cfg.AlertRecipient == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, SenderEmail or AlertRecipient missing). Falling back to log-only alerts.")
			return &LogAlertService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunAlertService{
			mg:         mg,
			sender:     config.Cfg.SenderEmail,
			senderName: config.Cfg.SenderName,
			recipient:  config.Cfg.AlertRecipient,
		}
	default:
		return &LogAlertService{}
	}
}

// MailgunAlertService emails reconciliation mismatches to the operator.
type MailgunAlertService struct {
	mg         mailgun.Mailgun
	sender     string
	senderName string
	recipient  string
}

func (s *MailgunAlertService) SendMismatchAlert(accession string, rollups []*models.Transaction) error {
	from := s.sender
	if s.senderName != "" {
		from = fmt.Sprintf("%s <%s>", s.senderName, s.sender)
	}
	subject := fmt.Sprintf("Reconciliation mismatch in filing %s", accession)
	message := s.mg.NewMessage(from, subject, mismatchBody(accession, rollups), s.recipient)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send mismatch alert via Mailgun", "accession", accession, "error", err)
		return fmt.Errorf("failed to send mismatch alert: %w", err)
	}
	logger.L.Info("Mismatch alert sent", "accession", accession, "messageID", id, "response", resp)
	return nil
}

// LogAlertService records mismatches in the application log only.
type LogAlertService struct{}

func (s *LogAlertService) SendMismatchAlert(accession string, rollups []*models.Transaction) error {
	for _, r := range rollups {
		var delta float64
		if r.MatchDelta != nil {
			delta = *r.MatchDelta
		}
		logger.L.Warn("Reconciliation mismatch",
			"accession", accession,
			"eventID", r.EventID,
			"matchDelta", delta,
			"method", r.ExerciseSharesMethod)
	}
	return nil
}

func mismatchBody(accession string, rollups []*models.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filing %s produced %d roll-up(s) whose linked sales do not reconcile with the exercise estimate.\n\n", accession, len(rollups))
	for _, r := range rollups {
		fmt.Fprintf(&b, "Event %s (%s)\n", r.EventID, r.AggregateType)
		if r.ExerciseSharesEst != nil {
			fmt.Fprintf(&b, "  Exercise estimate: %.2f shares (%s)\n", *r.ExerciseSharesEst, r.ExerciseSharesMethod)
		}
		if r.SoldNonTaxSum != nil {
			fmt.Fprintf(&b, "  Linked sales:      %.2f shares\n", *r.SoldNonTaxSum)
		}
		if r.MatchDelta != nil {
			fmt.Fprintf(&b, "  Delta:             %.2f shares\n", *r.MatchDelta)
		}
		b.WriteString("\n")
	}
	b.WriteString("Review the filing before publishing the narrative.\n")
	return b.String()
}
