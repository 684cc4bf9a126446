package mapper

import (
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/shipping"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToProfileDTO converts Profile to ProfileDTO
func ToProfileDTO(profile *domain.Profile) domain.ProfileDTO {
	return domain.ProfileDTO{
		ID:          profile.ID,
		Email:       profile.Email,
		FullName:    profile.FullName,
		Phone:       profile.Phone,
		CompanyName: profile.CompanyName,
		Role:        profile.Role,
		WilayaCode:  profile.WilayaCode,
		CreatedAt:   formatTime(profile.CreatedAt),
	}
}

// ToPartnerDTO converts Partner to PartnerDTO
func ToPartnerDTO(partner *domain.Partner) domain.PartnerDTO {
	capabilities := partner.Capabilities
	if capabilities == nil {
		capabilities = []string{}
	}
	return domain.PartnerDTO{
		ID:            partner.ID,
		ProfileID:     partner.ProfileID,
		CompanyName:   partner.CompanyName,
		WilayaCode:    partner.WilayaCode,
		WilayaName:    shipping.WilayaName(partner.WilayaCode),
		Capabilities:  capabilities,
		Description:   partner.Description,
		Rating:        partner.Rating,
		RatingCount:   partner.RatingCount,
		CompletedJobs: partner.CompletedJobs,
		Status:        partner.Status,
		ReviewNote:    partner.ReviewNote,
		CreatedAt:     formatTime(partner.CreatedAt),
	}
}

// ToQuoteDTO converts Quote to QuoteDTO
func ToQuoteDTO(quote *domain.Quote, bidCount int64) domain.QuoteDTO {
	return domain.QuoteDTO{
		ID:             quote.ID,
		ClientID:       quote.ClientID,
		PartName:       quote.PartName,
		Material:       quote.Material,
		Quantity:       quote.Quantity,
		Description:    quote.Description,
		DeliveryWilaya: quote.DeliveryWilaya,
		TargetBudget:   quote.TargetBudget,
		Deadline:       formatTimePtr(quote.Deadline),
		Status:         quote.Status,
		WinningBidID:   quote.WinningBidID,
		BidCount:       bidCount,
		AwardedAt:      formatTimePtr(quote.AwardedAt),
		CreatedAt:      formatTime(quote.CreatedAt),
		UpdatedAt:      formatTime(quote.UpdatedAt),
	}
}

// ToQuoteFileDTO converts QuoteFile to QuoteFileDTO
func ToQuoteFileDTO(file *domain.QuoteFile) domain.QuoteFileDTO {
	return domain.QuoteFileDTO{
		ID:          file.ID,
		QuoteID:     file.QuoteID,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Size:        file.Size,
		CreatedAt:   formatTime(file.CreatedAt),
	}
}

// ToBidDTO converts Bid to BidDTO
func ToBidDTO(bid *domain.Bid) domain.BidDTO {
	return domain.BidDTO{
		ID:           bid.ID,
		QuoteID:      bid.QuoteID,
		PartnerID:    bid.PartnerID,
		Amount:       bid.Amount,
		DeliveryDays: bid.DeliveryDays,
		Note:         bid.Note,
		Status:       bid.Status,
		CreatedAt:    formatTime(bid.CreatedAt),
		UpdatedAt:    formatTime(bid.UpdatedAt),
	}
}

// ToOrderDTO converts Order to OrderDTO
func ToOrderDTO(order *domain.Order) domain.OrderDTO {
	next := order.Status.NextStatuses()
	if next == nil {
		next = []domain.OrderStatus{}
	}
	return domain.OrderDTO{
		ID:             order.ID,
		QuoteID:        order.QuoteID,
		BidID:          order.BidID,
		PartnerID:      order.PartnerID,
		ClientID:       order.ClientID,
		TotalAmount:    order.TotalAmount,
		Status:         order.Status,
		StatusLabel:    order.Status.Label(),
		NextStatuses:   next,
		Carrier:        order.Carrier,
		TrackingNumber: order.TrackingNumber,
		ConfirmedAt:    formatTimePtr(order.ConfirmedAt),
		ShippedAt:      formatTimePtr(order.ShippedAt),
		DeliveredAt:    formatTimePtr(order.DeliveredAt),
		CancelledAt:    formatTimePtr(order.CancelledAt),
		Rating:         order.Rating,
		CreatedAt:      formatTime(order.CreatedAt),
		UpdatedAt:      formatTime(order.UpdatedAt),
	}
}

// ToPaymentDTO converts Payment to PaymentDTO
func ToPaymentDTO(payment *domain.Payment) domain.PaymentDTO {
	return domain.PaymentDTO{
		ID:          payment.ID,
		OrderID:     payment.OrderID,
		ClientID:    payment.ClientID,
		PartnerID:   payment.PartnerID,
		Amount:      payment.Amount,
		Method:      payment.Method,
		Status:      payment.Status,
		StatusLabel: payment.Status.Label(),
		Reference:   payment.Reference,
		AdminNote:   payment.AdminNote,
		HeldAt:      formatTimePtr(payment.HeldAt),
		ReleasedAt:  formatTimePtr(payment.ReleasedAt),
		RefundedAt:  formatTimePtr(payment.RefundedAt),
		FailedAt:    formatTimePtr(payment.FailedAt),
		CreatedAt:   formatTime(payment.CreatedAt),
	}
}

// ToMessageDTO converts Message to MessageDTO
func ToMessageDTO(message *domain.Message) domain.MessageDTO {
	return domain.MessageDTO{
		ID:         message.ID,
		QuoteID:    message.QuoteID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		Redacted:   message.Redacted,
		IsRead:     message.IsRead,
		CreatedAt:  formatTime(message.CreatedAt),
	}
}

// ToNotificationDTO converts Notification to NotificationDTO
func ToNotificationDTO(notification *domain.Notification) domain.NotificationDTO {
	return domain.NotificationDTO{
		ID:         notification.ID,
		Type:       notification.Type,
		Title:      notification.Title,
		Message:    notification.Message,
		Link:       notification.Link,
		Read:       notification.Read,
		CreatedAt:  formatTime(notification.CreatedAt),
		EntityID:   notification.EntityID,
		EntityType: notification.EntityType,
	}
}

// ToShippingEstimateDTO converts an estimate to its API shape
func ToShippingEstimateDTO(est shipping.Estimate) domain.ShippingEstimateDTO {
	return domain.ShippingEstimateDTO{
		From:     est.From,
		FromName: shipping.WilayaName(est.From),
		To:       est.To,
		ToName:   shipping.WilayaName(est.To),
		WeightKg: est.WeightKg,
		Cost:     est.Cost,
		EtaDays:  est.EtaDays,
		Tier:     string(est.Tier),
		Currency: "DZD",
	}
}

// ToWilayaDTOs converts the wilaya table
func ToWilayaDTOs(wilayas []shipping.Wilaya) []domain.WilayaDTO {
	out := make([]domain.WilayaDTO, len(wilayas))
	for i, w := range wilayas {
		out[i] = domain.WilayaDTO{Code: w.Code, Name: w.Name}
	}
	return out
}

// ToDocumentDTO converts Document to DocumentDTO
func ToDocumentDTO(document *domain.Document) domain.DocumentDTO {
	return domain.DocumentDTO{
		ID:        document.ID,
		Kind:      document.Kind,
		Number:    document.Number,
		QuoteID:   document.QuoteID,
		BidID:     document.BidID,
		OrderID:   document.OrderID,
		Total:     document.Total,
		CreatedAt: formatTime(document.CreatedAt),
	}
}
