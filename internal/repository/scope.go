package repository

import (
	"context"
	"strings"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns a default sort configuration (createdAt DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "createdAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the SQL ORDER BY clause from field mapping and sort config.
// fieldMap maps API field names to database column names; unknown fields fall
// back to defaultColumn.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// NormalizePage clamps page and page size to sane bounds
func NormalizePage(page, pageSize, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Row-level access policy. Every scope function reads the actor from the
// context; a context without an actor sees nothing. Admins see everything.

const partnerIDsOfProfile = "SELECT id FROM partners WHERE profile_id = ?"

func denyAll(query *gorm.DB) *gorm.DB {
	return query.Where("1 = 0")
}

// ApplyQuoteScope: clients see their own quotes, partners see open quotes and
// quotes they have bid on.
func ApplyQuoteScope(ctx context.Context, query *gorm.DB) *gorm.DB {
	user, ok := auth.FromContext(ctx)
	switch {
	case !ok:
		return denyAll(query)
	case user.IsAdmin():
		return query
	case user.IsClient():
		return query.Where("quotes.client_id = ?", user.UserID)
	case user.IsPartner():
		return query.Where(
			"quotes.status = ? OR quotes.id IN (SELECT quote_id FROM bids WHERE partner_id IN ("+partnerIDsOfProfile+"))",
			"open", user.UserID,
		)
	}
	return denyAll(query)
}

// ApplyBidScope: clients see bids on their quotes, partners see their own bids
func ApplyBidScope(ctx context.Context, query *gorm.DB) *gorm.DB {
	user, ok := auth.FromContext(ctx)
	switch {
	case !ok:
		return denyAll(query)
	case user.IsAdmin():
		return query
	case user.IsClient():
		return query.Where("bids.quote_id IN (SELECT id FROM quotes WHERE client_id = ?)", user.UserID)
	case user.IsPartner():
		return query.Where("bids.partner_id IN ("+partnerIDsOfProfile+")", user.UserID)
	}
	return denyAll(query)
}

// ApplyPartyScope restricts orders and payments to the client and partner involved.
// table qualifies the columns ("orders" or "payments").
func ApplyPartyScope(ctx context.Context, query *gorm.DB, table string) *gorm.DB {
	user, ok := auth.FromContext(ctx)
	switch {
	case !ok:
		return denyAll(query)
	case user.IsAdmin():
		return query
	case user.IsClient():
		return query.Where(table+".client_id = ?", user.UserID)
	case user.IsPartner():
		return query.Where(table+".partner_id IN ("+partnerIDsOfProfile+")", user.UserID)
	}
	return denyAll(query)
}

// ApplyMessageScope restricts messages to their sender and receiver
func ApplyMessageScope(ctx context.Context, query *gorm.DB) *gorm.DB {
	user, ok := auth.FromContext(ctx)
	switch {
	case !ok:
		return denyAll(query)
	case user.IsAdmin():
		return query
	}
	return query.Where("messages.sender_id = ? OR messages.receiver_id = ?", user.UserID, user.UserID)
}

// ApplyPartnerScope: approved partners are public, owners see their own record
func ApplyPartnerScope(ctx context.Context, query *gorm.DB) *gorm.DB {
	user, ok := auth.FromContext(ctx)
	switch {
	case !ok:
		return denyAll(query)
	case user.IsAdmin():
		return query
	}
	return query.Where("partners.status = ? OR partners.profile_id = ?", "approved", user.UserID)
}
