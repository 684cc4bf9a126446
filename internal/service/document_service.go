package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/documents"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/shipping"
	"github.com/atelier-dz/cnc-marketplace-api/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultShippingWeightKg prices shipping when the caller gives no weight
const defaultShippingWeightKg = 1.0

// DocumentOptions tune a rendering
type DocumentOptions struct {
	// WeightKg is the parcel weight used to price shipping
	WeightKg float64
	// TaxExempt issues the invoice without TVA; admins only
	TaxExempt bool
}

// RenderedDocument is a numbered PDF ready to be streamed or archived
type RenderedDocument struct {
	Record   *domain.Document
	Filename string
	Content  []byte
	Totals   documents.Totals
}

// DocumentService issues the devis and facture PDFs. A bid or an order keeps
// the same number across renderings.
type DocumentService struct {
	quoteRepo    *repository.QuoteRepository
	bidRepo      *repository.BidRepository
	orderRepo    *repository.OrderRepository
	partnerRepo  *repository.PartnerRepository
	profileRepo  *repository.ProfileRepository
	documentRepo *repository.DocumentRepository
	numbers      *NumberSequenceService
	estimator    *shipping.Estimator
	storage      storage.Storage
	cfg          config.DocumentsConfig
	linkTTL      time.Duration
	logger       *zap.Logger
}

func NewDocumentService(
	quoteRepo *repository.QuoteRepository,
	bidRepo *repository.BidRepository,
	orderRepo *repository.OrderRepository,
	partnerRepo *repository.PartnerRepository,
	profileRepo *repository.ProfileRepository,
	documentRepo *repository.DocumentRepository,
	numbers *NumberSequenceService,
	estimator *shipping.Estimator,
	store storage.Storage,
	cfg config.DocumentsConfig,
	linkTTL time.Duration,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		quoteRepo:    quoteRepo,
		bidRepo:      bidRepo,
		orderRepo:    orderRepo,
		partnerRepo:  partnerRepo,
		profileRepo:  profileRepo,
		documentRepo: documentRepo,
		numbers:      numbers,
		estimator:    estimator,
		storage:      store,
		cfg:          cfg,
		linkTTL:      linkTTL,
		logger:       logger,
	}
}

// QuotePDF renders the devis of a bid. The quote owner and the bidding
// workshop may download it.
func (s *DocumentService) QuotePDF(ctx context.Context, quoteID, bidID uuid.UUID, opts DocumentOptions) (*RenderedDocument, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	bid, err := s.bidRepo.GetByID(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	if bid.QuoteID != quote.ID {
		return nil, fmt.Errorf("bid %w on this quote", domain.ErrNotFound)
	}

	existing, err := s.documentRepo.FindForBid(ctx, bid.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up devis: %w", err)
	}

	doc, err := s.baseDocument(ctx, domain.DocumentKindQuote, quote, bid, opts.WeightKg)
	if err != nil {
		return nil, err
	}
	doc.Notes = "Devis établi sur la base de l'offre de l'atelier. Paiement sous séquestre via la plateforme."

	record := existing
	if record == nil {
		bidRef := bid.ID
		record = &domain.Document{
			Kind:      domain.DocumentKindQuote,
			QuoteID:   quote.ID,
			BidID:     &bidRef,
			CreatedBy: user.UserID,
		}
	}
	return s.render(ctx, record, doc)
}

// InvoicePDF renders the facture of an order for either party
func (s *DocumentService) InvoicePDF(ctx context.Context, orderID uuid.UUID, opts DocumentOptions) (*RenderedDocument, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if opts.TaxExempt && !user.IsAdmin() {
		return nil, forbidden("seul un administrateur peut émettre une facture exonérée")
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, conflict("la commande est annulée")
	}
	quote, err := s.quoteRepo.FindByID(ctx, order.QuoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	bid, err := s.bidRepo.FindByID(ctx, order.BidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}

	existing, err := s.documentRepo.FindForOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up invoice: %w", err)
	}

	doc, err := s.baseDocument(ctx, domain.DocumentKindInvoice, quote, bid, opts.WeightKg)
	if err != nil {
		return nil, err
	}
	// the order total is authoritative for the invoice
	doc.Items = lineItems(quote, order.TotalAmount)
	doc.Notes = "Facture émise pour la commande " + order.ID.String() + "."

	record := existing
	if record == nil {
		bidRef, orderRef := bid.ID, order.ID
		record = &domain.Document{
			Kind:      domain.DocumentKindInvoice,
			QuoteID:   quote.ID,
			BidID:     &bidRef,
			OrderID:   &orderRef,
			TaxExempt: opts.TaxExempt,
			CreatedBy: user.UserID,
		}
	} else if user.IsAdmin() {
		record.TaxExempt = opts.TaxExempt
	}
	doc.TaxExempt = record.TaxExempt
	return s.render(ctx, record, doc)
}

// Archive stores a rendered PDF and returns its record with a download link
func (s *DocumentService) Archive(ctx context.Context, rendered *RenderedDocument) (*domain.DocumentDTO, error) {
	folder := fmt.Sprintf("documents/%d", rendered.Record.CreatedAt.Year())
	key, _, err := s.storage.Upload(ctx, folder, rendered.Filename, "application/pdf", bytes.NewReader(rendered.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to archive document: %w", err)
	}

	previous := rendered.Record.StoragePath
	rendered.Record.StoragePath = key
	if err := s.documentRepo.Update(ctx, rendered.Record); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	if previous != "" && previous != key {
		if err := s.storage.Delete(ctx, previous); err != nil {
			s.logger.Warn("failed to delete previous archive", zap.String("path", previous), zap.Error(err))
		}
	}

	s.logger.Info("document archived",
		zap.String("number", rendered.Record.Number),
		zap.String("path", key),
	)
	return s.withLink(ctx, rendered.Record)
}

// ListForQuote returns the archived documents of a quote for its owner
func (s *DocumentService) ListForQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.DocumentDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.ClientID != user.UserID && !user.IsAdmin() {
		return nil, forbidden("cette demande de devis ne vous appartient pas")
	}

	records, err := s.documentRepo.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	dtos := make([]domain.DocumentDTO, 0, len(records))
	for i := range records {
		dto, err := s.withLink(ctx, &records[i])
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, *dto)
	}
	return dtos, nil
}

func (s *DocumentService) withLink(ctx context.Context, record *domain.Document) (*domain.DocumentDTO, error) {
	dto := mapper.ToDocumentDTO(record)
	if record.StoragePath == "" {
		return &dto, nil
	}
	link, expiresAt, err := s.storage.SignedURL(ctx, record.StoragePath, s.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign document link: %w", err)
	}
	dto.URL = link
	dto.ExpiresAt = expiresAt.UTC().Format(time.RFC3339)
	return &dto, nil
}

// render numbers the record on first use, renders the PDF and saves the record
func (s *DocumentService) render(ctx context.Context, record *domain.Document, doc documents.Document) (*RenderedDocument, error) {
	// validate before consuming a number
	if _, err := documents.ComputeTotals(doc.Items, doc.Shipping, doc.VATRate, doc.TaxExempt); err != nil {
		return nil, err
	}

	isNew := record.Number == ""
	if isNew {
		number, err := s.numbers.NextNumber(ctx, record.Kind)
		if err != nil {
			return nil, err
		}
		record.Number = number
	}
	doc.Number = record.Number
	if !record.CreatedAt.IsZero() {
		doc.IssuedAt = record.CreatedAt
	}

	content, totals, err := documents.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", record.Number, err)
	}
	record.Total = totals.Total.InexactFloat64()

	if isNew {
		err = s.documentRepo.Create(ctx, record)
	} else {
		err = s.documentRepo.Update(ctx, record)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	return &RenderedDocument{
		Record:   record,
		Filename: record.Number + ".pdf",
		Content:  content,
		Totals:   totals,
	}, nil
}

// baseDocument fills parties, items and shipping shared by devis and facture
func (s *DocumentService) baseDocument(ctx context.Context, kind domain.DocumentKind, quote *domain.Quote, bid *domain.Bid, weightKg float64) (documents.Document, error) {
	partner, err := s.partnerRepo.FindByID(ctx, bid.PartnerID)
	if err != nil {
		return documents.Document{}, fmt.Errorf("failed to get partner: %w", err)
	}
	profiles, err := s.profileRepo.GetByIDs(ctx, []uuid.UUID{quote.ClientID, partner.ProfileID})
	if err != nil {
		return documents.Document{}, fmt.Errorf("failed to get parties: %w", err)
	}

	shippingCost := decimal.Zero
	if quote.DeliveryWilaya != "" {
		if weightKg <= 0 {
			weightKg = defaultShippingWeightKg
		}
		estimate, err := s.estimator.Estimate(partner.WilayaCode, quote.DeliveryWilaya, weightKg)
		if err != nil {
			return documents.Document{}, fmt.Errorf("failed to price shipping: %w", err)
		}
		shippingCost = decimal.NewFromFloat(estimate.Cost)
	}

	vatRate := documents.DefaultVATRate
	if s.cfg.VATRate > 0 {
		vatRate = decimal.NewFromFloat(s.cfg.VATRate)
	}

	client := profiles[quote.ClientID]
	clientName := client.CompanyName
	if clientName == "" {
		clientName = client.FullName
	}
	supplierProfile := profiles[partner.ProfileID]

	return documents.Document{
		Kind: kind,
		Issuer: documents.Party{
			Name:    s.cfg.CompanyName,
			Address: s.cfg.CompanyAddress,
			Email:   s.cfg.CompanyEmail,
			NIF:     s.cfg.CompanyNIF,
			RC:      s.cfg.CompanyRC,
		},
		Client: documents.Party{
			Name:   clientName,
			Wilaya: shipping.WilayaName(quote.DeliveryWilaya),
			Email:  client.Email,
			Phone:  client.Phone,
		},
		Supplier: documents.Party{
			Name:   partner.CompanyName,
			Wilaya: shipping.WilayaName(partner.WilayaCode),
			Email:  supplierProfile.Email,
		},
		Reference:    quote.PartName,
		Items:        lineItems(quote, bid.Amount),
		Shipping:     shippingCost,
		VATRate:      vatRate,
		Currency:     s.cfg.Currency,
		DeliveryDays: bid.DeliveryDays,
	}, nil
}

// lineItems prints a unit price when the amount splits evenly over the
// quantity, otherwise one lot
func lineItems(quote *domain.Quote, amount float64) []documents.LineItem {
	total := decimal.NewFromFloat(amount)
	description := fmt.Sprintf("Usinage %s - %s", quote.PartName, quote.Material)
	if quote.Quantity > 1 {
		qty := decimal.NewFromInt(int64(quote.Quantity))
		unit := total.Div(qty).Round(2)
		if unit.Mul(qty).Equal(total) {
			return []documents.LineItem{{Description: description, Quantity: quote.Quantity, UnitPrice: unit}}
		}
		description = fmt.Sprintf("%s (lot de %d pièces)", description, quote.Quantity)
	}
	return []documents.LineItem{{Description: description, Quantity: 1, UnitPrice: total}}
}
