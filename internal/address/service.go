package address

import (
	"context"
	"errors"
	"fmt"

	"github.com/embercart/embercart-backend/pkg/db/models"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines saved-address operations. All operations are scoped to the
// owning user.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input UpdateInput) (*models.Address, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an address service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Street == "" || input.City == "" || input.State == "" || input.Country == "" || input.PostalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "street, city, state, country and postal code are required")
	}

	addr := &models.Address{
		UserID:     userID,
		Label:      input.Label,
		Street:     input.Street,
		City:       input.City,
		State:      input.State,
		Country:    input.Country,
		PostalCode: input.PostalCode,
		Phone:      input.Phone,
		IsDefault:  input.IsDefault,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing default address")
			}
		}
		if _, err := repo.Create(ctx, addr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	addrs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing addresses")
	}
	return addrs, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, input UpdateInput) (*models.Address, error) {
	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Label != nil {
		updates["label"] = *input.Label
	}
	if input.Street != nil {
		updates["street"] = *input.Street
	}
	if input.City != nil {
		updates["city"] = *input.City
	}
	if input.State != nil {
		updates["state"] = *input.State
	}
	if input.Country != nil {
		updates["country"] = *input.Country
	}
	if input.PostalCode != nil {
		updates["postal_code"] = *input.PostalCode
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.IsDefault != nil && *input.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing default address")
			}
			updates["is_default"] = true
		} else if input.IsDefault != nil {
			updates["is_default"] = false
		}
		if len(updates) == 0 {
			return nil
		}
		if err := repo.Updates(ctx, addr.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, addr.ID)
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, addr.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting address")
	}
	return nil
}

func (s *service) findOwned(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	addr, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading address")
	}
	if addr.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you do not own this address")
	}
	return addr, nil
}
