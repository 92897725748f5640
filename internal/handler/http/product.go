package http

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kolamcraft/catalog/internal/domain"
	"github.com/kolamcraft/catalog/internal/service"
	"github.com/kolamcraft/catalog/pkg/httputil"
)

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

type productResponse struct {
	Product *domain.Product `json:"product"`
}

type productListResponse struct {
	Products []domain.Product `json:"products"`
}

// ListProducts handles GET /api/products.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, "Failed to fetch products", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, productListResponse{Products: products})
}

// GetProduct handles GET /api/products/{id}.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, "Failed to fetch product", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, productResponse{Product: product})
}

// CreateProduct handles POST /api/products (multipart/form-data).
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	fields, img, ok := h.parseProductForm(w, r)
	if !ok {
		return
	}

	// A missing image is reported by the service so field validation
	// keeps precedence over image presence.
	var upload *service.ImageUpload
	if img != nil {
		defer img.file.Close()
		upload = img.upload()
	}

	product, err := h.service.CreateProduct(r.Context(), fields, upload)
	if err != nil {
		httputil.WriteError(w, r, err, "Failed to create product", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, productResponse{Product: product})
}

// UpdateProduct handles PUT /api/products/{id}. The image part is optional;
// when omitted the existing image is kept.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fields, img, ok := h.parseProductForm(w, r)
	if !ok {
		return
	}

	var upload *service.ImageUpload
	if img != nil {
		defer img.file.Close()
		upload = img.upload()
	}

	product, err := h.service.UpdateProduct(r.Context(), id, fields, upload)
	if err != nil {
		httputil.WriteError(w, r, err, "Failed to update product", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, productResponse{Product: product})
}

// DeleteProduct handles DELETE /api/products/{id}.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, "Failed to delete product", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.MessageBody{Message: "Product deleted successfully"})
}

// formImage pairs an open multipart file with its header.
type formImage struct {
	file   multipart.File
	header *multipart.FileHeader
}

func (f *formImage) upload() *service.ImageUpload {
	contentType := f.header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &service.ImageUpload{
		FileName:    f.header.Filename,
		ContentType: contentType,
		Size:        f.header.Size,
		Data:        f.file,
	}
}

// parseProductForm extracts the product text fields and the optional image
// part from a multipart request. It writes the error response itself and
// returns ok=false when parsing fails. Optional fields submitted empty are
// normalized to nil so they persist as NULL.
func (h *ProductHandler) parseProductForm(w http.ResponseWriter, r *http.Request) (*service.ProductFields, *formImage, bool) {
	// Image ceiling plus 1 MB of headroom for the text fields.
	maxSize := domain.MaxImageSize + (1 << 20)
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(domain.MaxImageSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: service.MsgImageTooLarge})
			return nil, nil, false
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: "Failed to parse multipart form"})
		return nil, nil, false
	}

	fields := &service.ProductFields{
		Name:            r.FormValue("name"),
		Description:     r.FormValue("description"),
		Size:            r.FormValue("size"),
		Price:           optionalField(r, "price"),
		Material:        optionalField(r, "material"),
		UsageSuggestion: optionalField(r, "usage_suggestion"),
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return fields, nil, true
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: "Failed to read uploaded image"})
		return nil, nil, false
	}

	return fields, &formImage{file: file, header: header}, true
}

func optionalField(r *http.Request, name string) *string {
	v := r.FormValue(name)
	if v == "" {
		return nil
	}
	return &v
}
