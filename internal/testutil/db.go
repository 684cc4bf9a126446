package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/database"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var seq atomic.Int64

// SetupTestDB opens a fresh SQLite database in the test's temp dir and
// migrates every model. Each test gets its own file so tests can run in parallel.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "marketplace.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=off"), database.GormConfig(zap.NewNop()))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite serialises writers; a single connection keeps transactions deterministic.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// AsUser returns a context authenticated as the given profile
func AsUser(ctx context.Context, profile *domain.Profile) context.Context {
	return auth.WithUserContext(ctx, &auth.UserContext{
		UserID:      profile.ID,
		DisplayName: profile.FullName,
		Email:       profile.Email,
		Role:        profile.Role,
		AuthMethod:  "test",
	})
}

// CreateProfile inserts a profile with the given role
func CreateProfile(t *testing.T, db *gorm.DB, role domain.UserRole) *domain.Profile {
	t.Helper()
	n := seq.Add(1)
	profile := &domain.Profile{
		Email:      fmt.Sprintf("user%d@example.dz", n),
		FullName:   fmt.Sprintf("Utilisateur %d", n),
		Role:       role,
		WilayaCode: "16",
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

// CreatePartner inserts a partner profile and its approved workshop
func CreatePartner(t *testing.T, db *gorm.DB, wilaya string) (*domain.Profile, *domain.Partner) {
	t.Helper()
	profile := CreateProfile(t, db, domain.RolePartner)
	partner := &domain.Partner{
		ProfileID:    profile.ID,
		CompanyName:  "Atelier " + profile.FullName,
		WilayaCode:   wilaya,
		Capabilities: []string{"milling", "turning"},
		Status:       domain.PartnerStatusApproved,
	}
	require.NoError(t, db.Create(partner).Error)
	return profile, partner
}

// CreateQuote inserts an open quote owned by client
func CreateQuote(t *testing.T, db *gorm.DB, client *domain.Profile) *domain.Quote {
	t.Helper()
	deadline := time.Now().UTC().Add(7 * 24 * time.Hour)
	quote := &domain.Quote{
		ClientID:       client.ID,
		PartName:       "Bride acier",
		Material:       "acier",
		Quantity:       10,
		DeliveryWilaya: "16",
		Deadline:       &deadline,
		Status:         domain.QuoteStatusOpen,
	}
	require.NoError(t, db.Create(quote).Error)
	return quote
}

// CreateBid inserts a pending bid by partner on quote
func CreateBid(t *testing.T, db *gorm.DB, quote *domain.Quote, partner *domain.Partner, amount float64) *domain.Bid {
	t.Helper()
	bid := &domain.Bid{
		QuoteID:      quote.ID,
		PartnerID:    partner.ID,
		Amount:       amount,
		DeliveryDays: 10,
		Status:       domain.BidStatusPending,
	}
	require.NoError(t, db.Create(bid).Error)
	return bid
}

// CreateOrder inserts an order for an accepted bid in the given status
func CreateOrder(t *testing.T, db *gorm.DB, quote *domain.Quote, bid *domain.Bid, status domain.OrderStatus) *domain.Order {
	t.Helper()
	order := &domain.Order{
		QuoteID:     quote.ID,
		BidID:       bid.ID,
		PartnerID:   bid.PartnerID,
		ClientID:    quote.ClientID,
		TotalAmount: bid.Amount,
		Status:      status,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

// NewID is a shorthand for tests that need an unrelated identifier
func NewID() uuid.UUID {
	return uuid.New()
}
