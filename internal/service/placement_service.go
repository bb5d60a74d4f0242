package service

import (
	"context"
	"errors"

	"github.com/soltrees/api/internal/avatar"
	apperrors "github.com/soltrees/api/internal/errors"
	"github.com/soltrees/api/internal/logging"
	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/payment"
	"github.com/soltrees/api/internal/storage"
	"github.com/soltrees/api/internal/types"
)

// PlacementService runs the payment-gated placement flow. The ledger check
// happens strictly before any write: a request that fails verification leaves
// no trace in storage and can simply be retried after paying.
type PlacementService struct {
	trees      TreeStore
	users      UserStore
	categories CategoryStore
	verifier   payment.Verifier
	avatars    avatar.Resolver
	cache      ListingCache
	logger     *logging.Logger
}

// NewPlacementService creates a new placement service. cache may be nil.
func NewPlacementService(
	trees TreeStore,
	users UserStore,
	categories CategoryStore,
	verifier payment.Verifier,
	avatars avatar.Resolver,
	cache ListingCache,
	logger *logging.Logger,
) *PlacementService {
	return &PlacementService{
		trees:      trees,
		users:      users,
		categories: categories,
		verifier:   verifier,
		avatars:    avatars,
		cache:      cache,
		logger:     logger,
	}
}

// PlaceTreeInput represents a placement request
type PlaceTreeInput struct {
	PositionX   string `json:"position_x"`
	PositionY   string `json:"position_y"`
	UserAddress string `json:"userAddress"`
	Handle      string `json:"handle"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Size        string `json:"size"`
	Shape       string `json:"type"`
	Category    string `json:"category"`
}

// PlaceTree validates the request, verifies the placement fee on the ledger,
// then persists the tree and links it to the user's record. Validation runs
// before the verifier is consulted so malformed requests never hit the
// ledger.
func (s *PlacementService) PlaceTree(ctx context.Context, input *PlaceTreeInput) (*models.Tree, error) {
	size, shape, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	price := size.Price()
	paid, err := s.verifier.WasPaid(ctx, input.UserAddress, price)
	if err != nil {
		return nil, apperrors.NewInternalError("payment verification failed", err)
	}
	if !paid {
		s.logger.WithFields(map[string]interface{}{
			"address": input.UserAddress,
			"size":    string(size),
			"price":   price.String(),
		}).Info("Placement rejected: no qualifying payment found")
		return nil, apperrors.NewPaymentNotFoundError(input.UserAddress, price.String())
	}

	tree := &models.Tree{
		PositionX:     input.PositionX,
		PositionY:     input.PositionY,
		UserAddress:   input.UserAddress,
		Handle:        input.Handle,
		ProfilePicURL: s.avatars.Resolve(ctx, input.Handle),
		Description:   input.Description,
		Link:          input.Link,
		Size:          size,
		Shape:         shape,
		Category:      input.Category,
	}

	treeID, err := s.trees.Insert(ctx, tree)
	if err != nil {
		return nil, apperrors.NewDatabaseError("insert tree", err)
	}

	if _, err := s.users.EnsureUser(ctx, input.UserAddress); err != nil {
		return nil, apperrors.NewDatabaseError("ensure user", err)
	}
	if err := s.users.LinkTree(ctx, input.UserAddress, treeID, input.Handle); err != nil {
		return nil, apperrors.NewDatabaseError("link tree", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidatePlacement(ctx, tree.Category); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate tree listing cache")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"treeId":  treeID,
		"address": input.UserAddress,
		"size":    string(size),
	}).Info("Tree placed")

	placed, err := s.trees.GetByID(ctx, treeID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("read placed tree", err)
	}

	return placed, nil
}

// validate checks every request field before any external call is made.
func (s *PlacementService) validate(ctx context.Context, input *PlaceTreeInput) (types.TreeSize, types.TreeShape, error) {
	if input.PositionX == "" || input.PositionY == "" {
		return "", "", apperrors.NewValidationError("position", "x and y are required")
	}
	if err := payment.ValidateAddress(input.UserAddress); err != nil {
		return "", "", apperrors.NewInvalidAddressError(input.UserAddress)
	}

	size, err := types.ParseTreeSize(input.Size)
	if err != nil {
		return "", "", apperrors.NewValidationError("size", err.Error())
	}
	shape, err := types.ParseTreeShape(input.Shape)
	if err != nil {
		return "", "", apperrors.NewValidationError("type", err.Error())
	}

	if input.Category == "" {
		return "", "", apperrors.NewValidationError("category", "category is required")
	}
	if !types.IsBuiltinCategory(input.Category) {
		if _, err := s.categories.GetByID(ctx, input.Category); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", "", apperrors.NewValidationError("category", "unknown category: "+input.Category)
			}
			return "", "", apperrors.NewDatabaseError("lookup category", err)
		}
	}

	return size, shape, nil
}
