package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

// AccountSource resolves the recipient address for a notification.
type AccountSource interface {
	GetAccount(ctx context.Context, id uuid.UUID) (store.Account, error)
}

// EmailNotifier sends confirmation emails for selected topics.
type EmailNotifier struct {
	Sender   common.EmailSender
	Accounts AccountSource
}

// Notify sends an email for topics that warrant one. Unknown topics are
// ignored.
func (n *EmailNotifier) Notify(ctx context.Context, topic string, accountID uuid.UUID, payload any) error {
	if n.Sender == nil || n.Accounts == nil {
		return nil
	}
	subject, body := n.compose(topic)
	if subject == "" {
		return nil
	}
	account, err := n.Accounts.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if account.Email == "" {
		return nil
	}
	return n.Sender.Send(account.Email, subject, body)
}

func (n *EmailNotifier) compose(topic string) (subject, body string) {
	switch topic {
	case TopicRegistrationCreated:
		return "Inscription confirmée",
			"<p>Votre inscription a bien été enregistrée. Retrouvez le détail dans votre espace parent.</p>"
	case TopicInvoiceCreated:
		return "Nouvelle facture disponible",
			"<p>Une nouvelle facture est disponible dans votre espace parent.</p>"
	default:
		return "", ""
	}
}
