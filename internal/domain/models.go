package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// UserRole is the marketplace role carried by an authenticated profile
type UserRole string

const (
	RoleClient  UserRole = "client"
	RolePartner UserRole = "partner"
	RoleAdmin   UserRole = "admin"
)

// IsValid checks if the UserRole is a valid enum value
func (r UserRole) IsValid() bool {
	switch r {
	case RoleClient, RolePartner, RoleAdmin:
		return true
	}
	return false
}

// Profile is the marketplace identity of an authenticated user.
// Its ID equals the subject of the user's access token.
type Profile struct {
	BaseModel
	Email       string   `gorm:"type:varchar(255);not null;uniqueIndex"`
	FullName    string   `gorm:"type:varchar(200);column:full_name"`
	Phone       string   `gorm:"type:varchar(30)"`
	CompanyName string   `gorm:"type:varchar(200);column:company_name"`
	Role        UserRole `gorm:"type:varchar(20);not null;default:'client'"`
	WilayaCode  string   `gorm:"type:varchar(2);column:wilaya_code"`
}

// PartnerStatus represents the review status of a workshop partner
type PartnerStatus string

const (
	PartnerStatusPending   PartnerStatus = "pending"
	PartnerStatusApproved  PartnerStatus = "approved"
	PartnerStatusRejected  PartnerStatus = "rejected"
	PartnerStatusSuspended PartnerStatus = "suspended"
)

// IsValid checks if the PartnerStatus is a valid enum value
func (s PartnerStatus) IsValid() bool {
	switch s {
	case PartnerStatusPending, PartnerStatusApproved, PartnerStatusRejected, PartnerStatusSuspended:
		return true
	}
	return false
}

// Partner is a certified machining workshop able to bid on quotes
type Partner struct {
	BaseModel
	ProfileID     uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex;column:profile_id"`
	CompanyName   string        `gorm:"type:varchar(200);not null;column:company_name"`
	WilayaCode    string        `gorm:"type:varchar(2);not null;index;column:wilaya_code"`
	Capabilities  []string      `gorm:"serializer:json;type:text"`
	Description   string        `gorm:"type:varchar(2000)"`
	Rating        float64       `gorm:"type:decimal(3,2);not null;default:0"`
	RatingCount   int           `gorm:"not null;default:0;column:rating_count"`
	CompletedJobs int           `gorm:"not null;default:0;column:completed_jobs"`
	Status        PartnerStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ReviewNote    string        `gorm:"type:varchar(500);column:review_note"`
	ReviewedAt    *time.Time    `gorm:"column:reviewed_at"`
}

// QuoteStatus represents the bidding state of a quote
type QuoteStatus string

const (
	QuoteStatusOpen    QuoteStatus = "open"
	QuoteStatusClosed  QuoteStatus = "closed"
	QuoteStatusAwarded QuoteStatus = "awarded"
)

// IsValid checks if the QuoteStatus is a valid enum value
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusOpen, QuoteStatusClosed, QuoteStatusAwarded:
		return true
	}
	return false
}

// CanAward reports whether a bid may still be accepted on a quote in this state
func (s QuoteStatus) CanAward() bool {
	return s == QuoteStatusOpen || s == QuoteStatusClosed
}

// Quote is a client's request for a part to be machined
type Quote struct {
	BaseModel
	ClientID       uuid.UUID   `gorm:"type:uuid;not null;index;column:client_id"`
	PartName       string      `gorm:"type:varchar(200);not null;column:part_name"`
	Material       string      `gorm:"type:varchar(100);not null"`
	Quantity       int         `gorm:"not null"`
	Description    string      `gorm:"type:varchar(4000)"`
	DeliveryWilaya string      `gorm:"type:varchar(2);column:delivery_wilaya"`
	TargetBudget   *float64    `gorm:"type:decimal(15,2);column:target_budget"`
	Deadline       *time.Time  `gorm:"index"`
	Status         QuoteStatus `gorm:"type:varchar(20);not null;default:'open';index"`
	WinningBidID   *uuid.UUID  `gorm:"type:uuid;column:winning_bid_id"`
	AwardedAt      *time.Time  `gorm:"column:awarded_at"`
	ClosedAt       *time.Time  `gorm:"column:closed_at"`
}

// QuoteFile is a drawing or CAD model attached to a quote
type QuoteFile struct {
	BaseModel
	QuoteID     uuid.UUID `gorm:"type:uuid;not null;index;column:quote_id"`
	UploadedBy  uuid.UUID `gorm:"type:uuid;not null;column:uploaded_by"`
	Filename    string    `gorm:"type:varchar(255);not null"`
	ContentType string    `gorm:"type:varchar(100);column:content_type"`
	Size        int64     `gorm:"not null"`
	StoragePath string    `gorm:"type:varchar(500);not null;column:storage_path"`
}

// BidStatus represents the state of a partner's bid
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

// IsValid checks if the BidStatus is a valid enum value
func (s BidStatus) IsValid() bool {
	switch s {
	case BidStatusPending, BidStatusAccepted, BidStatusRejected:
		return true
	}
	return false
}

// Bid is a partner's priced proposal against a quote.
// A partner holds at most one bid per quote.
type Bid struct {
	BaseModel
	QuoteID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_bids_quote_partner;column:quote_id"`
	PartnerID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_bids_quote_partner;index;column:partner_id"`
	Amount       float64    `gorm:"type:decimal(15,2);not null"`
	DeliveryDays int        `gorm:"not null;column:delivery_days"`
	Note         string     `gorm:"type:varchar(2000)"`
	Status       BidStatus  `gorm:"type:varchar(20);not null;default:'pending';index"`
	DecidedAt    *time.Time `gorm:"column:decided_at"`
}

// OrderStatus represents the production and shipment state of an order
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusConfirmed    OrderStatus = "confirmed"
	OrderStatusInProduction OrderStatus = "in_production"
	OrderStatusQC           OrderStatus = "qc"
	OrderStatusShipped      OrderStatus = "shipped"
	OrderStatusDelivered    OrderStatus = "delivered"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

// Order is the production engagement created when a bid is accepted
type Order struct {
	BaseModel
	QuoteID        uuid.UUID   `gorm:"type:uuid;not null;index;column:quote_id"`
	BidID          uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex;column:bid_id"`
	PartnerID      uuid.UUID   `gorm:"type:uuid;not null;index;column:partner_id"`
	ClientID       uuid.UUID   `gorm:"type:uuid;not null;index;column:client_id"`
	TotalAmount    float64     `gorm:"type:decimal(15,2);not null;column:total_amount"`
	Status         OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Carrier        string      `gorm:"type:varchar(100)"`
	TrackingNumber string      `gorm:"type:varchar(100);column:tracking_number"`
	ConfirmedAt    *time.Time  `gorm:"column:confirmed_at"`
	ShippedAt      *time.Time  `gorm:"column:shipped_at"`
	DeliveredAt    *time.Time  `gorm:"column:delivered_at"`
	CancelledAt    *time.Time  `gorm:"column:cancelled_at"`
	Rating         *int        `gorm:"column:rating"`
	RatedAt        *time.Time  `gorm:"column:rated_at"`
}

// PaymentMethod is a payment channel available in Algeria
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCCP          PaymentMethod = "ccp"
	PaymentMethodBaridiMob    PaymentMethod = "baridi_mob"
	PaymentMethodSatimCard    PaymentMethod = "satim_card"
	PaymentMethodCash         PaymentMethod = "cash"
)

// IsValid checks if the PaymentMethod is a valid enum value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCCP, PaymentMethodBaridiMob, PaymentMethodSatimCard, PaymentMethodCash:
		return true
	}
	return false
}

// PaymentStatus represents the escrow state of a payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusHeld     PaymentStatus = "held"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// IsValid checks if the PaymentStatus is a valid enum value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusHeld, PaymentStatusReleased, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

// IsActive reports whether the payment still blocks a new payment on the same order
func (s PaymentStatus) IsActive() bool {
	return s == PaymentStatusPending || s == PaymentStatusHeld || s == PaymentStatusReleased
}

// Payment is an escrow-style payment record for an order
type Payment struct {
	BaseModel
	OrderID    uuid.UUID     `gorm:"type:uuid;not null;index;column:order_id"`
	ClientID   uuid.UUID     `gorm:"type:uuid;not null;index;column:client_id"`
	PartnerID  uuid.UUID     `gorm:"type:uuid;not null;index;column:partner_id"`
	Amount     float64       `gorm:"type:decimal(15,2);not null"`
	Method     PaymentMethod `gorm:"type:varchar(20);not null"`
	Status     PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Reference  string        `gorm:"type:varchar(100)"`
	AdminNote  string        `gorm:"type:varchar(500);column:admin_note"`
	HeldAt     *time.Time    `gorm:"column:held_at"`
	ReleasedAt *time.Time    `gorm:"column:released_at"`
	RefundedAt *time.Time    `gorm:"column:refunded_at"`
	FailedAt   *time.Time    `gorm:"column:failed_at"`
}

// Message is a chat line between a client and a partner about a quote.
// Content is stored already filtered.
type Message struct {
	BaseModel
	QuoteID    uuid.UUID  `gorm:"type:uuid;not null;index;column:quote_id"`
	SenderID   uuid.UUID  `gorm:"type:uuid;not null;index;column:sender_id"`
	ReceiverID uuid.UUID  `gorm:"type:uuid;not null;index;column:receiver_id"`
	Content    string     `gorm:"type:varchar(2000);not null"`
	Redacted   bool       `gorm:"not null;default:false"`
	IsRead     bool       `gorm:"column:is_read;not null;default:false;index"`
	ReadAt     *time.Time `gorm:"column:read_at"`
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeBidReceived     NotificationType = "bid_received"
	NotificationTypeBidAccepted     NotificationType = "bid_accepted"
	NotificationTypeBidRejected     NotificationType = "bid_rejected"
	NotificationTypeOrderStatus     NotificationType = "order_status"
	NotificationTypePaymentUpdate   NotificationType = "payment_update"
	NotificationTypeNewMessage      NotificationType = "new_message"
	NotificationTypePartnerReviewed NotificationType = "partner_reviewed"
	NotificationTypeQuoteClosed     NotificationType = "quote_closed"
)

// Notification represents a user notification
type Notification struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Type       string    `gorm:"type:varchar(50);not null"`
	Title      string    `gorm:"type:varchar(200);not null"`
	Message    string    `gorm:"type:varchar(500);not null"`
	Link       string    `gorm:"type:varchar(500)"`
	Read       bool      `gorm:"column:read;not null;default:false;index"`
	ReadAt     *time.Time
	EntityID   *uuid.UUID `gorm:"type:uuid"`
	EntityType string     `gorm:"type:varchar(50)"`
}

// DocumentKind distinguishes the PDF documents the platform issues
type DocumentKind string

const (
	DocumentKindQuote   DocumentKind = "quote"
	DocumentKindInvoice DocumentKind = "invoice"
)

// Document is an archived, numbered PDF (devis or facture)
type Document struct {
	BaseModel
	Kind        DocumentKind `gorm:"type:varchar(20);not null;index"`
	Number      string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	QuoteID     uuid.UUID    `gorm:"type:uuid;not null;index;column:quote_id"`
	BidID       *uuid.UUID   `gorm:"type:uuid;column:bid_id"`
	OrderID     *uuid.UUID   `gorm:"type:uuid;index;column:order_id"`
	Total       float64      `gorm:"type:decimal(15,2);not null"`
	TaxExempt   bool         `gorm:"not null;default:false;column:tax_exempt"`
	StoragePath string       `gorm:"type:varchar(500);column:storage_path"`
	CreatedBy   uuid.UUID    `gorm:"type:uuid;not null;column:created_by"`
}

// NumberSequence tracks the last issued document number per prefix and year
type NumberSequence struct {
	ID           uint      `gorm:"primaryKey"`
	Prefix       string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_number_sequences_prefix_year"`
	Year         int       `gorm:"not null;uniqueIndex:idx_number_sequences_prefix_year"`
	LastSequence int       `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
