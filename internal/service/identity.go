package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inboxd/internal/models"
)

// IdentityService maps channel identifiers (wa_id, ig_id) to customers,
// creating the customer on first contact. Concurrent first contacts for the
// same identifier collapse against the store's unique index: both callers
// insert, one wins, both re-read the same row.
type IdentityService struct {
	store  Store
	logger *logrus.Logger
}

func NewIdentityService(store Store, logger *logrus.Logger) *IdentityService {
	return &IdentityService{store: store, logger: logger}
}

// ResolveOrCreate returns the customer owning the event's sender identifier.
func (s *IdentityService) ResolveOrCreate(ctx context.Context, event models.IncomingEvent) (*models.Customer, error) {
	existing, err := s.store.GetCustomerByChannelID(ctx, event.Channel, event.SenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}
	if existing != nil {
		if err := s.store.TouchCustomer(ctx, existing.ID); err != nil {
			s.logger.WithError(err).WithField(LogFieldCustomerID, existing.ID).
				Warn("Failed to update customer last interaction")
		}
		return existing, nil
	}

	name := event.SenderName
	if name == "" {
		name = models.DefaultCustomerName
	}

	now := time.Now().UTC()
	customer := &models.Customer{
		ID:              uuid.NewString(),
		Name:            name,
		CreatedAt:       now,
		LastInteraction: now,
	}
	switch event.Channel {
	case models.ChannelWhatsApp:
		customer.WhatsAppID = event.SenderID
	case models.ChannelInstagram:
		customer.InstagramID = event.SenderID
	default:
		return nil, fmt.Errorf("unknown channel: %s", event.Channel)
	}

	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	// Re-read instead of trusting our insert: if a concurrent delivery won
	// the race, its row is the canonical one.
	created, err := s.store.GetCustomerByChannelID(ctx, event.Channel, event.SenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read customer: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("customer vanished after create for %s:%s", event.Channel, event.SenderID)
	}

	if created.ID == customer.ID {
		s.logger.WithFields(logrus.Fields{
			LogFieldCustomerID: created.ID,
			LogFieldChannel:    string(event.Channel),
		}).Info("Created new customer")
	}

	return created, nil
}
