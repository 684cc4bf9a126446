package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses. Timestamps are ISO 8601 strings.

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

type ProfileDTO struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CompanyName string    `json:"companyName,omitempty"`
	Role        UserRole  `json:"role"`
	WilayaCode  string    `json:"wilayaCode,omitempty"`
	CreatedAt   string    `json:"createdAt"`
}

type UpdateProfileRequest struct {
	FullName    string `json:"fullName" validate:"max=200"`
	Phone       string `json:"phone" validate:"max=30"`
	CompanyName string `json:"companyName" validate:"max=200"`
	WilayaCode  string `json:"wilayaCode" validate:"omitempty,len=2,numeric"`
}

type PartnerDTO struct {
	ID            uuid.UUID     `json:"id"`
	ProfileID     uuid.UUID     `json:"profileId"`
	CompanyName   string        `json:"companyName"`
	WilayaCode    string        `json:"wilayaCode"`
	WilayaName    string        `json:"wilayaName,omitempty"`
	Capabilities  []string      `json:"capabilities"`
	Description   string        `json:"description,omitempty"`
	Rating        float64       `json:"rating"`
	RatingCount   int           `json:"ratingCount"`
	CompletedJobs int           `json:"completedJobs"`
	Status        PartnerStatus `json:"status"`
	ReviewNote    string        `json:"reviewNote,omitempty"`
	CreatedAt     string        `json:"createdAt"`
}

type ApplyPartnerRequest struct {
	CompanyName  string   `json:"companyName" validate:"required,max=200"`
	WilayaCode   string   `json:"wilayaCode" validate:"required,len=2,numeric"`
	Capabilities []string `json:"capabilities" validate:"required,min=1,max=30,dive,required,max=50"`
	Description  string   `json:"description" validate:"max=2000"`
}

type UpdatePartnerRequest struct {
	Capabilities []string `json:"capabilities" validate:"required,min=1,max=30,dive,required,max=50"`
	Description  string   `json:"description" validate:"max=2000"`
}

type ReviewPartnerRequest struct {
	Status PartnerStatus `json:"status" validate:"required,oneof=approved rejected suspended"`
	Note   string        `json:"note" validate:"max=500"`
}

type QuoteDTO struct {
	ID             uuid.UUID   `json:"id"`
	ClientID       uuid.UUID   `json:"clientId"`
	PartName       string      `json:"partName"`
	Material       string      `json:"material"`
	Quantity       int         `json:"quantity"`
	Description    string      `json:"description,omitempty"`
	DeliveryWilaya string      `json:"deliveryWilaya,omitempty"`
	TargetBudget   *float64    `json:"targetBudget,omitempty"`
	Deadline       *string     `json:"deadline,omitempty"`
	Status         QuoteStatus `json:"status"`
	WinningBidID   *uuid.UUID  `json:"winningBidId,omitempty"`
	BidCount       int64       `json:"bidCount"`
	AwardedAt      *string     `json:"awardedAt,omitempty"`
	CreatedAt      string      `json:"createdAt"`
	UpdatedAt      string      `json:"updatedAt"`
}

type CreateQuoteRequest struct {
	PartName       string     `json:"partName" validate:"required,max=200"`
	Material       string     `json:"material" validate:"required,max=100"`
	Quantity       int        `json:"quantity" validate:"required,min=1,max=1000000"`
	Description    string     `json:"description" validate:"max=4000"`
	DeliveryWilaya string     `json:"deliveryWilaya" validate:"omitempty,len=2,numeric"`
	TargetBudget   *float64   `json:"targetBudget,omitempty" validate:"omitempty,gt=0"`
	Deadline       *time.Time `json:"deadline,omitempty"`
}

type UpdateQuoteRequest = CreateQuoteRequest

type QuoteFileDTO struct {
	ID          uuid.UUID `json:"id"`
	QuoteID     uuid.UUID `json:"quoteId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   string    `json:"createdAt"`
}

type SignedURLDTO struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

type BidDTO struct {
	ID           uuid.UUID `json:"id"`
	QuoteID      uuid.UUID `json:"quoteId"`
	PartnerID    uuid.UUID `json:"partnerId"`
	Amount       float64   `json:"amount"`
	DeliveryDays int       `json:"deliveryDays"`
	Note         string    `json:"note,omitempty"`
	Status       BidStatus `json:"status"`
	CreatedAt    string    `json:"createdAt"`
	UpdatedAt    string    `json:"updatedAt"`
}

type SubmitBidRequest struct {
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	DeliveryDays int     `json:"deliveryDays" validate:"required,min=1,max=365"`
	Note         string  `json:"note" validate:"max=2000"`
}

type UpdateBidRequest = SubmitBidRequest

// AcceptBidResultDTO describes the state left behind by a bid acceptance
type AcceptBidResultDTO struct {
	Quote          QuoteDTO    `json:"quote"`
	AcceptedBid    BidDTO      `json:"acceptedBid"`
	RejectedBidIDs []uuid.UUID `json:"rejectedBidIds"`
	Order          OrderDTO    `json:"order"`
}

type OrderDTO struct {
	ID             uuid.UUID     `json:"id"`
	QuoteID        uuid.UUID     `json:"quoteId"`
	BidID          uuid.UUID     `json:"bidId"`
	PartnerID      uuid.UUID     `json:"partnerId"`
	ClientID       uuid.UUID     `json:"clientId"`
	TotalAmount    float64       `json:"totalAmount"`
	Status         OrderStatus   `json:"status"`
	StatusLabel    string        `json:"statusLabel"`
	NextStatuses   []OrderStatus `json:"nextStatuses"`
	Carrier        string        `json:"carrier,omitempty"`
	TrackingNumber string        `json:"trackingNumber,omitempty"`
	ConfirmedAt    *string       `json:"confirmedAt,omitempty"`
	ShippedAt      *string       `json:"shippedAt,omitempty"`
	DeliveredAt    *string       `json:"deliveredAt,omitempty"`
	CancelledAt    *string       `json:"cancelledAt,omitempty"`
	Rating         *int          `json:"rating,omitempty"`
	CreatedAt      string        `json:"createdAt"`
	UpdatedAt      string        `json:"updatedAt"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required"`
}

type SetTrackingRequest struct {
	Carrier        string `json:"carrier" validate:"required,max=100"`
	TrackingNumber string `json:"trackingNumber" validate:"required,max=100"`
}

type RateOrderRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

type PaymentDTO struct {
	ID          uuid.UUID     `json:"id"`
	OrderID     uuid.UUID     `json:"orderId"`
	ClientID    uuid.UUID     `json:"clientId"`
	PartnerID   uuid.UUID     `json:"partnerId"`
	Amount      float64       `json:"amount"`
	Method      PaymentMethod `json:"method"`
	Status      PaymentStatus `json:"status"`
	StatusLabel string        `json:"statusLabel"`
	Reference   string        `json:"reference,omitempty"`
	AdminNote   string        `json:"adminNote,omitempty"`
	HeldAt      *string       `json:"heldAt,omitempty"`
	ReleasedAt  *string       `json:"releasedAt,omitempty"`
	RefundedAt  *string       `json:"refundedAt,omitempty"`
	FailedAt    *string       `json:"failedAt,omitempty"`
	CreatedAt   string        `json:"createdAt"`
}

type CreatePaymentRequest struct {
	OrderID   uuid.UUID     `json:"orderId" validate:"required"`
	Method    PaymentMethod `json:"method" validate:"required,oneof=bank_transfer ccp baridi_mob satim_card cash"`
	Amount    *float64      `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Reference string        `json:"reference" validate:"max=100"`
}

type PaymentActionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

type MessageDTO struct {
	ID         uuid.UUID `json:"id"`
	QuoteID    uuid.UUID `json:"quoteId"`
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	Content    string    `json:"content"`
	Redacted   bool      `json:"redacted"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  string    `json:"createdAt"`
}

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiverId" validate:"required"`
	Content    string    `json:"content" validate:"required,min=1,max=2000"`
}

type NotificationDTO struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Link       string     `json:"link,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  string     `json:"createdAt"`
	EntityID   *uuid.UUID `json:"entityId,omitempty"`
	EntityType string     `json:"entityType,omitempty"`
}

type UnreadCountDTO struct {
	Count int64 `json:"count"`
}

type ShippingEstimateDTO struct {
	From     string  `json:"from"`
	FromName string  `json:"fromName"`
	To       string  `json:"to"`
	ToName   string  `json:"toName"`
	WeightKg float64 `json:"weightKg"`
	Cost     float64 `json:"cost"`
	EtaDays  int     `json:"etaDays"`
	Tier     string  `json:"tier"`
	Currency string  `json:"currency"`
}

type WilayaDTO struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type DocumentDTO struct {
	ID        uuid.UUID    `json:"id"`
	Kind      DocumentKind `json:"kind"`
	Number    string       `json:"number"`
	QuoteID   uuid.UUID    `json:"quoteId"`
	BidID     *uuid.UUID   `json:"bidId,omitempty"`
	OrderID   *uuid.UUID   `json:"orderId,omitempty"`
	Total     float64      `json:"total"`
	URL       string       `json:"url,omitempty"`
	ExpiresAt string       `json:"expiresAt,omitempty"`
	CreatedAt string       `json:"createdAt"`
}
