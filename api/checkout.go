package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/juliettescloset/storefront-api/internal/repository"
)

// CheckoutRequest is the cart snapshot submitted for a WhatsApp order.
type CheckoutRequest struct {
	Items []struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	Location string `json:"location"`
}

// CheckoutLink is the prepared WhatsApp deep link for an order.
type CheckoutLink struct {
	URL      string  `json:"url"`
	Subtotal float64 `json:"subtotal"`
}

type CheckoutHandler struct {
	repo           repository.ProductRepository
	whatsappNumber string
}

func NewCheckoutHandler(repo repository.ProductRepository, whatsappNumber string) *CheckoutHandler {
	return &CheckoutHandler{repo: repo, whatsappNumber: whatsappNumber}
}

func RegisterCheckoutRoutes(rg *gin.RouterGroup, repo repository.ProductRepository, whatsappNumber string) {
	handler := NewCheckoutHandler(repo, whatsappNumber)

	rg.POST("/whatsapp-link", handler.CreateWhatsAppLink)
}

// CreateWhatsAppLink handles POST /api/checkout/whatsapp-link. It
// resolves the cart against the catalog, formats the order message and
// returns the wa.me deep link the storefront opens.
func (h *CheckoutHandler) CreateWhatsAppLink(c *gin.Context) {
	var request CheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(request.Items) == 0 {
		fail(c, http.StatusBadRequest, "Your cart is empty.")
		return
	}
	location := strings.TrimSpace(request.Location)
	if location == "" {
		fail(c, http.StatusBadRequest, "A delivery location is required.")
		return
	}

	var message strings.Builder
	message.WriteString("Hello Juliette's Closet! I would like to place an order:\n\n")

	subtotal := 0.0
	for _, item := range request.Items {
		if item.Quantity <= 0 {
			fail(c, http.StatusBadRequest, "Item quantity must be a positive number.")
			return
		}
		product, err := h.repo.Get(c.Request.Context(), item.ID)
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Sprintf("Unknown product %q.", item.ID))
			return
		}

		subtotal += product.Price * float64(item.Quantity)
		fmt.Fprintf(&message, "*%s*\n", product.Name)
		fmt.Fprintf(&message, "_Quantity_: %d\n", item.Quantity)
		fmt.Fprintf(&message, "_Price_: $%.2f\n", product.Price)
		fmt.Fprintf(&message, "_Image_: %s\n\n", product.ImageURL)
	}

	fmt.Fprintf(&message, "*Subtotal*: $%.2f\n", subtotal)
	fmt.Fprintf(&message, "*Location*: %s\n\n", location)
	message.WriteString("Please confirm my order. Thank you!")

	link := fmt.Sprintf("https://wa.me/%s?text=%s",
		digitsOnly(h.whatsappNumber), url.QueryEscape(message.String()))

	ok(c, http.StatusOK, CheckoutLink{URL: link, Subtotal: subtotal})
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
