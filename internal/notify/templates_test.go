package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_Render(t *testing.T) {
	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	for _, name := range []string{"bid_received", "bid_accepted", "bid_rejected", "order_status", "payment_update", "partner_reviewed"} {
		assert.True(t, tmpl.Has(name), name)
	}

	html, err := tmpl.Render("bid_received", EmailData{
		AppName:       "Usinage DZ",
		RecipientName: "Karim",
		Title:         "Nouvelle offre",
		Link:          "https://app.example.dz/quotes/1",
		Details:       map[string]string{"partName": "Bride <acier>", "amount": "45000.00", "deliveryDays": "5"},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Bonjour Karim")
	assert.Contains(t, html, "45000.00 DZD")
	assert.Contains(t, html, "Bride &lt;acier&gt;")
	assert.Contains(t, html, "https://app.example.dz/quotes/1")
}

func TestTemplates_FallbackToGeneric(t *testing.T) {
	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	html, err := tmpl.Render("quote_closed", EmailData{AppName: "Usinage DZ", Message: "Votre demande est clôturée."})
	require.NoError(t, err)
	assert.Contains(t, html, "Votre demande est clôturée.")
}
