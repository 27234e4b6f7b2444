package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/juliettescloset/storefront-api/internal/domain"
	"github.com/juliettescloset/storefront-api/internal/events"
	"github.com/juliettescloset/storefront-api/internal/repository"
	"github.com/juliettescloset/storefront-api/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) (*gin.Engine, repository.ProductRepository, *events.Bus) {
	gin.SetMode(gin.TestMode)

	repo := repository.NewProductRepository(service.NewMemoryStore())
	bus := events.NewBus()

	router := gin.New()
	RegisterProductRoutes(router.Group("/api/products"), repo, bus)
	RegisterCheckoutRoutes(router.Group("/api/checkout"), repo, "+18296508431")
	return router, repo, bus
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w, resp
}

type uploadFile struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func doMultipart(t *testing.T, router *gin.Engine, method, path string, fields map[string]string, files ...uploadFile) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, file := range files {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename)}
		header["Content-Type"] = []string{file.contentType}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w, resp
}

func validProductBody() map[string]any {
	return map[string]any{
		"name":        "Silk Scarf",
		"price":       19.99,
		"description": "A hand-dyed silk scarf",
		"imageUrl":    "https://example.com/scarf.jpg",
		"category":    "Clothing",
	}
}

// ------------------ GET ------------------

func TestListProducts_SeedsOnFirstAccess(t *testing.T) {
	router, _, _ := newTestServer(t)

	w, resp := doJSON(t, router, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	var products []domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &products))
	require.Len(t, products, len(domain.SeedProducts))

	// Second request must not duplicate the seed set.
	_, resp = doJSON(t, router, http.MethodGet, "/api/products", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &products))
	require.Len(t, products, len(domain.SeedProducts))
}

func TestListProducts_Filters(t *testing.T) {
	router, _, _ := newTestServer(t)

	_, resp := doJSON(t, router, http.MethodGet, "/api/products?category=Home", nil)
	var products []domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &products))
	require.NotEmpty(t, products)
	for _, p := range products {
		require.Equal(t, "Home", p.Category)
	}

	_, resp = doJSON(t, router, http.MethodGet, "/api/products?minPrice=20&maxPrice=40", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &products))
	require.NotEmpty(t, products)
	for _, p := range products {
		require.GreaterOrEqual(t, p.Price, 20.0)
		require.LessOrEqual(t, p.Price, 40.0)
	}

	w, resp := doJSON(t, router, http.MethodGet, "/api/products?minPrice=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, resp.Success)
}

// ------------------ POST ------------------

func TestCreateProduct_JSON(t *testing.T) {
	router, repo, _ := newTestServer(t)

	w, resp := doJSON(t, router, http.MethodPost, "/api/products", validProductBody())
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, resp.Success)

	var created domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.True(t, strings.HasPrefix(created.ID, "prod_"))
	require.Equal(t, "Silk Scarf", created.Name)
	require.Equal(t, 19.99, created.Price)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created, stored)
}

func TestCreateProduct_ValidationErrors(t *testing.T) {
	router, _, _ := newTestServer(t)

	cases := []struct {
		name   string
		mutate func(body map[string]any)
	}{
		{"missing name", func(b map[string]any) { b["name"] = "" }},
		{"missing description", func(b map[string]any) { b["description"] = "" }},
		{"missing imageUrl", func(b map[string]any) { b["imageUrl"] = "" }},
		{"zero price", func(b map[string]any) { b["price"] = 0 }},
		{"negative price", func(b map[string]any) { b["price"] = -5 }},
		{"absent price", func(b map[string]any) { delete(b, "price") }},
		{"non-numeric price", func(b map[string]any) { b["price"] = "cheap" }},
		{"unknown category", func(b map[string]any) { b["category"] = "Shoes" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validProductBody()
			tc.mutate(body)

			w, resp := doJSON(t, router, http.MethodPost, "/api/products", body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.False(t, resp.Success)
			require.NotEmpty(t, resp.Error)
		})
	}
}

func TestCreateProduct_MultipartWithImageFile(t *testing.T) {
	router, _, _ := newTestServer(t)

	fields := map[string]string{
		"name":        "Knit Sweater",
		"price":       "45.50",
		"description": "Chunky knit sweater",
		"category":    "Clothing",
	}
	file := uploadFile{
		field:       "imageFile",
		filename:    "sweater.png",
		contentType: "image/png",
		content:     []byte("fake-png-bytes"),
	}

	w, resp := doMultipart(t, router, http.MethodPost, "/api/products", fields, file)
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, resp.Success)

	var created domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.True(t, strings.HasPrefix(created.ImageURL, "data:image/png;base64,"))
}

func TestCreateProduct_MultipartWithoutImage(t *testing.T) {
	router, _, _ := newTestServer(t)

	fields := map[string]string{
		"name":        "Knit Sweater",
		"price":       "45.50",
		"description": "Chunky knit sweater",
		"category":    "Clothing",
	}

	w, resp := doMultipart(t, router, http.MethodPost, "/api/products", fields)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing required string fields.", resp.Error)
}

func TestCreateProduct_PublishesChangeEvent(t *testing.T) {
	router, _, bus := newTestServer(t)

	var published atomic.Int32
	require.NoError(t, bus.SubscribeProductsChanged(func(kind events.ChangeKind) {
		if kind == events.ChangeCreated {
			published.Add(1)
		}
	}))

	w, _ := doJSON(t, router, http.MethodPost, "/api/products", validProductBody())
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, int32(1), published.Load())
}

// ------------------ PUT ------------------

func TestUpdateProduct(t *testing.T) {
	router, _, _ := newTestServer(t)

	_, resp := doJSON(t, router, http.MethodPost, "/api/products", validProductBody())
	var created domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	body := validProductBody()
	body["name"] = "Silk Scarf (Limited)"
	body["price"] = 24.99

	w, resp := doJSON(t, router, http.MethodPut, "/api/products/"+created.ID, body)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	var updated domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "Silk Scarf (Limited)", updated.Name)
	require.Equal(t, 24.99, updated.Price)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	router, _, _ := newTestServer(t)

	w, resp := doJSON(t, router, http.MethodPut, "/api/products/prod_ghost", validProductBody())
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Product not found", resp.Error)
}

func TestUpdateProduct_RequiresCarriedImageURL(t *testing.T) {
	router, _, _ := newTestServer(t)

	_, resp := doJSON(t, router, http.MethodPost, "/api/products", validProductBody())
	var created domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	// Multipart update with neither imageFile nor imageUrl is a client
	// error; the server has no keep-old-value fallback.
	fields := map[string]string{
		"name":        "Silk Scarf",
		"price":       "19.99",
		"description": "A hand-dyed silk scarf",
		"category":    "Clothing",
	}
	w, resp := doMultipart(t, router, http.MethodPut, "/api/products/"+created.ID, fields)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing required string fields.", resp.Error)
}

func TestUpdateProduct_ReplacesImageFromFile(t *testing.T) {
	router, _, _ := newTestServer(t)

	_, resp := doJSON(t, router, http.MethodPost, "/api/products", validProductBody())
	var created domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	fields := map[string]string{
		"name":        "Silk Scarf",
		"price":       "19.99",
		"description": "A hand-dyed silk scarf",
		"category":    "Clothing",
	}
	file := uploadFile{
		field:       "imageFile",
		filename:    "new.jpg",
		contentType: "image/jpeg",
		content:     []byte("jpeg-bytes"),
	}

	w, resp := doMultipart(t, router, http.MethodPut, "/api/products/"+created.ID, fields, file)
	require.Equal(t, http.StatusOK, w.Code)

	var updated domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	require.True(t, strings.HasPrefix(updated.ImageURL, "data:image/jpeg;base64,"))
}

// ------------------ DELETE ------------------

func TestDeleteProduct(t *testing.T) {
	router, _, _ := newTestServer(t)

	_, resp := doJSON(t, router, http.MethodPost, "/api/products", validProductBody())
	var created domain.Product
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	w, resp := doJSON(t, router, http.MethodDelete, "/api/products/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Equal(t, created.ID, result.ID)
	require.True(t, result.Deleted)

	// Idempotent delete surfaces as not found.
	w, resp = doJSON(t, router, http.MethodDelete, "/api/products/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Product not found", resp.Error)
}
