package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kolamcraft/catalog/internal/domain"
	"github.com/kolamcraft/catalog/internal/event"
	"github.com/kolamcraft/catalog/internal/repository"
	"github.com/kolamcraft/catalog/internal/storage"
	apperrors "github.com/kolamcraft/catalog/pkg/errors"
)

// Validation messages surfaced verbatim to API callers.
const (
	MsgRequiredFields  = "Name, description, and size are required"
	MsgImageRequired   = "Product image is required"
	MsgInvalidFileType = "Invalid file type. Only JPEG, PNG, WebP, and GIF are allowed."
	MsgImageTooLarge   = "Image exceeds the 10 MB size limit"
)

// ProductService implements the catalog business logic, coupling product
// records to their image blobs.
type ProductService struct {
	repo     repository.ProductRepository
	storage  storage.Storage
	producer *event.Producer
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	repo repository.ProductRepository,
	store storage.Storage,
	producer *event.Producer,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		repo:     repo,
		storage:  store,
		producer: producer,
		logger:   logger,
	}
}

// ProductFields holds the text attributes supplied on create and update.
// Optional fields left nil are stored as NULL; on update this clears any
// prior value rather than preserving it.
type ProductFields struct {
	Name            string
	Description     string
	Size            string
	Price           *string
	Material        *string
	UsageSuggestion *string
}

// ImageUpload holds an uploaded product image.
type ImageUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

func validateFields(f *ProductFields) error {
	if strings.TrimSpace(f.Name) == "" ||
		strings.TrimSpace(f.Description) == "" ||
		strings.TrimSpace(f.Size) == "" {
		return apperrors.InvalidInput(MsgRequiredFields)
	}
	return nil
}

func validateImage(img *ImageUpload) error {
	if !domain.IsAllowedContentType(img.ContentType) {
		return apperrors.InvalidInput(MsgInvalidFileType)
	}
	if img.Size > domain.MaxImageSize {
		return apperrors.InvalidInput(MsgImageTooLarge)
	}
	if img.Size <= 0 {
		return apperrors.InvalidInput(MsgImageRequired)
	}
	return nil
}

// imageKey generates a collision-free storage key for an upload, preserving
// the original file extension so the public URL stays type-hinted.
func imageKey(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return uuid.New().String() + ext
}

// keyFromURL recovers the storage key from a public image URL. Keys are
// flat, so the key is the last path segment.
func keyFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return path.Base(imageURL)
	}
	return path.Base(u.Path)
}

// ListProducts returns all products, newest first.
func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct retrieves a product by its id.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// CreateProduct validates the input, uploads the image, and inserts the
// record. If the upload fails no record is written.
func (s *ProductService) CreateProduct(ctx context.Context, fields *ProductFields, img *ImageUpload) (*domain.Product, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if img == nil || img.Data == nil {
		return nil, apperrors.InvalidInput(MsgImageRequired)
	}
	if err := validateImage(img); err != nil {
		return nil, err
	}

	key := imageKey(img.FileName)
	result, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: img.ContentType,
		Size:        img.Size,
		Data:        img.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:              uuid.New().String(),
		Name:            fields.Name,
		Description:     fields.Description,
		Size:            fields.Size,
		Price:           fields.Price,
		Material:        fields.Material,
		UsageSuggestion: fields.UsageSuggestion,
		ImageURL:        result.URL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, product); err != nil {
		// Clean up the uploaded blob so a failed insert leaves no orphan.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up storage after db error",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("insert product record: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
		slog.String("size", product.Size),
	)

	return product, nil
}

// UpdateProduct overwrites a product's fields and optionally replaces its
// image. The new image is uploaded before the old blob is removed, so the
// record never references a missing blob. Old-blob deletion is best-effort:
// its failure is logged and the update proceeds.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, fields *ProductFields, img *ImageUpload) (*domain.Product, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	imageURL := existing.ImageURL
	if img != nil && img.Data != nil {
		if err := validateImage(img); err != nil {
			return nil, err
		}

		key := imageKey(img.FileName)
		result, err := s.storage.Upload(ctx, &storage.UploadInput{
			Key:         key,
			ContentType: img.ContentType,
			Size:        img.Size,
			Data:        img.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("upload replacement image: %w", err)
		}

		oldKey := keyFromURL(existing.ImageURL)
		if delErr := s.storage.Delete(ctx, oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced image blob",
				slog.String("product_id", id),
				slog.String("key", oldKey),
				slog.String("error", delErr.Error()),
			)
		}

		imageURL = result.URL
	}

	product := &domain.Product{
		ID:              existing.ID,
		Name:            fields.Name,
		Description:     fields.Description,
		Size:            fields.Size,
		Price:           fields.Price,
		Material:        fields.Material,
		UsageSuggestion: fields.UsageSuggestion,
		ImageURL:        imageURL,
		CreatedAt:       existing.CreatedAt,
		UpdatedAt:       time.Now().UTC(),
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
	)

	return product, nil
}

// DeleteProduct removes a product and best-effort deletes its image blob.
// A blob-delete failure is logged, never surfaced; the record is always
// removed. Deleting an unknown id is a not-found error.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	key := keyFromURL(existing.ImageURL)
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete image blob",
			slog.String("product_id", id),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return nil
}
