package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/notify"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"github.com/atelier-dz/cnc-marketplace-api/internal/shipping"
	"github.com/atelier-dz/cnc-marketplace-api/internal/storage"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fixture wires every service against a fresh SQLite database and an
// in-memory notification recorder
type fixture struct {
	db       *gorm.DB
	recorder *notify.Recorder
	storage  *storage.LocalStorage

	quoteRepo   *repository.QuoteRepository
	bidRepo     *repository.BidRepository
	orderRepo   *repository.OrderRepository
	partnerRepo *repository.PartnerRepository

	profiles      *service.ProfileService
	partners      *service.PartnerService
	quotes        *service.QuoteService
	bids          *service.BidService
	orders        *service.OrderService
	payments      *service.PaymentService
	messages      *service.MessageService
	notifications *service.NotificationService
	numbers       *service.NumberSequenceService
	documents     *service.DocumentService
	files         *service.FileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	recorder := &notify.Recorder{}

	store, err := storage.NewLocalStorage(t.TempDir(), storage.NewURLSigner("test-signing-secret"))
	require.NoError(t, err)
	estimator, err := shipping.NewEstimator(1000)
	require.NoError(t, err)

	profileRepo := repository.NewProfileRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	bidRepo := repository.NewBidRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	numberRepo := repository.NewNumberSequenceRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	fileRepo := repository.NewQuoteFileRepository(db)

	numbers := service.NewNumberSequenceService(numberRepo, logger)

	return &fixture{
		db:          db,
		recorder:    recorder,
		storage:     store,
		quoteRepo:   quoteRepo,
		bidRepo:     bidRepo,
		orderRepo:   orderRepo,
		partnerRepo: partnerRepo,

		profiles:      service.NewProfileService(profileRepo, logger),
		partners:      service.NewPartnerService(partnerRepo, recorder, logger),
		quotes:        service.NewQuoteService(quoteRepo, recorder, logger),
		bids:          service.NewBidService(db, bidRepo, quoteRepo, partnerRepo, orderRepo, recorder, nil, logger),
		orders:        service.NewOrderService(db, orderRepo, partnerRepo, quoteRepo, recorder, nil, logger),
		payments:      service.NewPaymentService(paymentRepo, orderRepo, partnerRepo, recorder, nil, logger),
		messages:      service.NewMessageService(messageRepo, quoteRepo, bidRepo, recorder, nil, logger),
		notifications: service.NewNotificationService(notificationRepo, logger),
		numbers:       numbers,
		documents: service.NewDocumentService(quoteRepo, bidRepo, orderRepo, partnerRepo, profileRepo, documentRepo,
			numbers, estimator, store, config.DocumentsConfig{
				CompanyName: "Usinage DZ SARL",
				Currency:    "DZD",
			}, 10*time.Minute, logger),
		files: service.NewFileService(fileRepo, quoteRepo, store, store.Signer(), 1024*1024, 10*time.Minute, logger),
	}
}

func as(profile *domain.Profile) context.Context {
	return testutil.AsUser(context.Background(), profile)
}

func asAdmin(t *testing.T, db *gorm.DB) context.Context {
	t.Helper()
	return as(testutil.CreateProfile(t, db, domain.RoleAdmin))
}

// eventsOfType filters recorded events for one user and notification type
func eventsOfType(r *notify.Recorder, userID uuid.UUID, typ domain.NotificationType) []notify.Event {
	var out []notify.Event
	for _, e := range r.For(userID) {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
