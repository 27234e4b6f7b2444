package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/juliettescloset/storefront-api/internal/domain"
	"github.com/juliettescloset/storefront-api/internal/events"
	"github.com/juliettescloset/storefront-api/internal/repository"
)

const (
	csvHeader = "name,price,description,imageUrl,category"

	maxCSVBytes   = 5 << 20
	maxImageBytes = 2 << 20

	bulkPersistWorkers = 8
)

var errImageTooLarge = errors.New("image file too large")

// ProductRequest is the JSON body accepted by create and update.
type ProductRequest struct {
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	Category    string   `json:"category"`
}

// BulkUploadResult reports the outcome of a CSV import.
type BulkUploadResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

type ProductHandler struct {
	repo repository.ProductRepository
	bus  *events.Bus
}

func NewProductHandler(repo repository.ProductRepository, bus *events.Bus) *ProductHandler {
	return &ProductHandler{repo: repo, bus: bus}
}

func RegisterProductRoutes(rg *gin.RouterGroup, repo repository.ProductRepository, bus *events.Bus) {
	handler := NewProductHandler(repo, bus)

	rg.Use(ensureSeedMiddleware(repo))
	rg.GET("", handler.ListProducts)
	rg.POST("", handler.CreateProduct)
	rg.PUT("/:id", handler.UpdateProduct)
	rg.DELETE("/:id", handler.DeleteProduct)
	rg.POST("/bulk-upload", handler.BulkUpload)
}

// ensureSeedMiddleware seeds the sample catalog the first time the
// product namespace is observed empty.
func ensureSeedMiddleware(repo repository.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := repo.EnsureSeed(c.Request.Context(), domain.SeedProducts); err != nil {
			fail(c, http.StatusInternalServerError, "Failed to prepare catalog")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ------------------ Handlers ------------------

// ListProducts handles GET /api/products. Optional category, minPrice
// and maxPrice query params narrow the listing for the catalog view.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := repository.ProductFilter{
		Category: strings.TrimSpace(c.Query("category")),
	}

	var errMsg string
	if filter.MinPrice, errMsg = priceParam(c, "minPrice"); errMsg != "" {
		fail(c, http.StatusBadRequest, errMsg)
		return
	}
	if filter.MaxPrice, errMsg = priceParam(c, "maxPrice"); errMsg != "" {
		fail(c, http.StatusBadRequest, errMsg)
		return
	}

	products, err := h.repo.ListFiltered(c.Request.Context(), filter)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list products")
		return
	}
	ok(c, http.StatusOK, products)
}

// CreateProduct handles POST /api/products with either a JSON body or a
// multipart form carrying an imageFile attachment.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	input, errMsg := h.bindProductInput(c)
	if errMsg != "" {
		fail(c, http.StatusBadRequest, errMsg)
		return
	}

	product := domain.Product{
		ID:          "prod_" + uuid.New().String(),
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		Category:    input.Category,
	}

	created, err := h.repo.Create(c.Request.Context(), product)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to save product")
		return
	}

	h.bus.PublishProductsChanged(events.ChangeCreated)
	ok(c, http.StatusCreated, created)
}

// UpdateProduct handles PUT /api/products/:id. The record must already
// exist; without an imageFile attachment the caller has to carry the
// existing imageUrl forward.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id := c.Param("id")

	exists, err := h.repo.Exists(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Error retrieving product")
		return
	}
	if !exists {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}

	input, errMsg := h.bindProductInput(c)
	if errMsg != "" {
		fail(c, http.StatusBadRequest, errMsg)
		return
	}

	product := domain.Product{
		ID:          id,
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		Category:    input.Category,
	}

	updated, err := h.repo.Save(c.Request.Context(), id, product)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			fail(c, http.StatusNotFound, "Product not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to update product")
		return
	}

	h.bus.PublishProductsChanged(events.ChangeUpdated)
	ok(c, http.StatusOK, updated)
}

// DeleteProduct handles DELETE /api/products/:id.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")

	removed, err := h.repo.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	if !removed {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}

	h.bus.PublishProductsChanged(events.ChangeDeleted)
	ok(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// BulkUpload handles POST /api/products/bulk-upload. The CSV contract
// is line oriented: exact header, comma separated, no quoting or
// embedded commas. Rows are validated independently; rows that pass are
// persisted concurrently and persistence failures are reported per row
// alongside the validation errors.
func (h *ProductHandler) BulkUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("products-csv")
	if err != nil {
		fail(c, http.StatusBadRequest, "A CSV file is required")
		return
	}
	if fileHeader.Size > maxCSVBytes {
		fail(c, http.StatusBadRequest, "CSV file exceeds the 5MB limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "Unable to read CSV file")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxCSVBytes))
	if err != nil {
		fail(c, http.StatusBadRequest, "Unable to read CSV file")
		return
	}

	lines := splitCSVLines(string(raw))
	if len(lines) == 0 {
		fail(c, http.StatusBadRequest, "CSV file is empty")
		return
	}
	if strings.TrimSpace(lines[0]) != csvHeader {
		fail(c, http.StatusBadRequest, "Invalid CSV header. Expected: "+csvHeader)
		return
	}
	rows := lines[1:]
	if len(rows) == 0 {
		fail(c, http.StatusBadRequest, "CSV file contains no data rows")
		return
	}

	type validRow struct {
		rowNum  int
		product domain.Product
	}

	rowErrors := []string{}
	var valid []validRow

	for i, line := range rows {
		rowNum := i + 1
		product, errMsg := parseCSVRow(line)
		if errMsg != "" {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %s", rowNum, errMsg))
			continue
		}
		product.ID = "prod_" + uuid.New().String()
		valid = append(valid, validRow{rowNum: rowNum, product: product})
	}

	// Persist independently; a row that fails to save must not take the
	// rest of the batch down with it.
	var mu sync.Mutex
	created := 0

	g := new(errgroup.Group)
	g.SetLimit(bulkPersistWorkers)
	for _, row := range valid {
		row := row
		g.Go(func() error {
			if _, err := h.repo.Create(c.Request.Context(), row.product); err != nil {
				mu.Lock()
				rowErrors = append(rowErrors, fmt.Sprintf("row %d: failed to save product: %v", row.rowNum, err))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			created++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if created > 0 {
		h.bus.PublishProductsChanged(events.ChangeImported)
	}

	ok(c, http.StatusOK, BulkUploadResult{
		Created: created,
		Failed:  len(rows) - created,
		Errors:  rowErrors,
	})
}

// ------------------ Input binding & validation ------------------

// priceParam parses an optional price query param. Returns nil when the
// param is absent.
func priceParam(c *gin.Context, name string) (*float64, string) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, ""
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return nil, fmt.Sprintf("Invalid %s value", name)
	}
	return &value, ""
}

type productInput struct {
	Name        string
	Price       float64
	Description string
	ImageURL    string
	Category    string
}

// bindProductInput reads the product fields from either a JSON body or
// a multipart form and validates them. It returns an empty message on
// success.
func (h *ProductHandler) bindProductInput(c *gin.Context) (productInput, string) {
	var input productInput

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		input.Name = strings.TrimSpace(c.PostForm("name"))
		input.Description = strings.TrimSpace(c.PostForm("description"))
		input.Category = strings.TrimSpace(c.PostForm("category"))
		input.ImageURL = strings.TrimSpace(c.PostForm("imageUrl"))

		priceRaw := strings.TrimSpace(c.PostForm("price"))
		price, err := strconv.ParseFloat(priceRaw, 64)
		if err != nil {
			return input, "Price must be a positive number."
		}
		input.Price = price

		if fileHeader, err := c.FormFile("imageFile"); err == nil {
			dataURI, err := encodeImageFile(fileHeader)
			if errors.Is(err, errImageTooLarge) {
				return input, "Image file exceeds the 2MB limit."
			}
			if err != nil {
				return input, "Unable to read image file."
			}
			input.ImageURL = dataURI
		}
	} else {
		var request ProductRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			return input, "Invalid request body"
		}
		input.Name = strings.TrimSpace(request.Name)
		input.Description = strings.TrimSpace(request.Description)
		input.Category = strings.TrimSpace(request.Category)
		input.ImageURL = strings.TrimSpace(request.ImageURL)
		if request.Price != nil {
			input.Price = *request.Price
		}
	}

	if errMsg := validateProductFields(input.Name, input.Description, input.ImageURL, input.Category, input.Price); errMsg != "" {
		return input, errMsg
	}
	return input, ""
}

func validateProductFields(name, description, imageURL, category string, price float64) string {
	if name == "" || description == "" || imageURL == "" || category == "" {
		return "Missing required string fields."
	}
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return "Price must be a positive number."
	}
	if !domain.IsValidCategory(category) {
		return fmt.Sprintf("Invalid category %q.", category)
	}
	return ""
}

// parseCSVRow validates one data row against the line-oriented CSV
// contract and returns the product it describes, or an error message.
func parseCSVRow(line string) (domain.Product, string) {
	var product domain.Product

	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return product, fmt.Sprintf("expected 5 columns, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	name, priceRaw, description, imageURL, category := fields[0], fields[1], fields[2], fields[3], fields[4]

	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return product, "price must be a positive number"
	}
	if name == "" || description == "" || imageURL == "" || category == "" {
		return product, "missing required fields"
	}
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return product, "price must be a positive number"
	}
	if !domain.IsValidCategory(category) {
		return product, fmt.Sprintf("invalid category %q", category)
	}

	product.Name = name
	product.Price = price
	product.Description = description
	product.ImageURL = imageURL
	product.Category = category
	return product, ""
}

// splitCSVLines normalizes line endings and drops blank lines.
func splitCSVLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// encodeImageFile embeds an uploaded image directly into the record as
// a base64 data URI. Record-size limits of the backing store bound the
// practical image size, hence the hard cap.
func encodeImageFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > maxImageBytes {
		return "", errImageTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image file: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", errImageTooLarge
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
