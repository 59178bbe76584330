package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"veriflow/internal/metrics"
	"veriflow/internal/models"
	"veriflow/internal/repositories"
)

// AccountService resolves a verified identifier to an account, creating one
// on first verification.
type AccountService interface {
	GetOrCreate(ctx context.Context, identifier string, kind models.IdentifierKind) (*models.Account, error)
}

type accountService struct {
	accountRepo repositories.AccountRepository
}

func NewAccountService(accountRepo repositories.AccountRepository) AccountService {
	return &accountService{accountRepo: accountRepo}
}

func (s *accountService) GetOrCreate(ctx context.Context, identifier string, kind models.IdentifierKind) (*models.Account, error) {
	var (
		account *models.Account
		err     error
	)
	switch kind {
	case models.KindEmail:
		account, err = s.accountRepo.FindByEmail(ctx, identifier)
	case models.KindPhone:
		account, err = s.accountRepo.FindByPhone(ctx, identifier)
	default:
		return nil, fmt.Errorf("unknown identifier kind: %s", kind)
	}
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &models.Account{}
	switch kind {
	case models.KindEmail:
		account.Email = identifier
		account.EmailVerified = true
	case models.KindPhone:
		account.Phone = identifier
		account.PhoneVerified = true
	}

	created, err := s.accountRepo.Create(ctx, account)
	if err != nil {
		return nil, err
	}
	metrics.AccountsCreatedTotal.Inc()
	log.Info().Str("identifier", identifier).Str("kind", string(kind)).Msg("Account created after first verification")
	return created, nil
}
