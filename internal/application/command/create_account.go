package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE ACCOUNT COMMAND
// Provisions a fresh account: zero points, level one, no streak.
// ══════════════════════════════════════════════════════════════════════════════

// CreateAccountCommand contains the data to provision an account.
type CreateAccountCommand struct {
	// AccountID is an optional externally supplied ID (UUID).
	// When empty a new one is generated.
	AccountID string

	// DisplayName is the account's visible name.
	DisplayName string
}

// CreateAccountResult contains the provisioned account.
type CreateAccountResult struct {
	AccountID   shared.AccountID `json:"account_id"`
	DisplayName string           `json:"display_name"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CreateAccountHandler handles the CreateAccountCommand.
type CreateAccountHandler struct {
	accounts account.Repository
	log      *logger.Logger
}

// NewCreateAccountHandler creates a new CreateAccountHandler.
func NewCreateAccountHandler(accounts account.Repository, log *logger.Logger) *CreateAccountHandler {
	return &CreateAccountHandler{
		accounts: accounts,
		log:      log.With(logger.Component("create_account")),
	}
}

// Handle executes the create account command.
func (h *CreateAccountHandler) Handle(ctx context.Context, cmd CreateAccountCommand) (*CreateAccountResult, error) {
	rawID := cmd.AccountID
	if rawID == "" {
		rawID = uuid.NewString()
	}

	id, err := shared.NewAccountID(rawID)
	if err != nil {
		return nil, err
	}

	acc, err := account.NewAccount(account.NewAccountParams{
		ID:          id,
		DisplayName: cmd.DisplayName,
	})
	if err != nil {
		return nil, fmt.Errorf("create_account: %w", err)
	}

	if err := h.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}

	h.log.Info("account created", logger.AccountID(acc.ID.String()))

	return &CreateAccountResult{
		AccountID:   acc.ID,
		DisplayName: acc.DisplayName,
		CreatedAt:   acc.CreatedAt,
	}, nil
}
