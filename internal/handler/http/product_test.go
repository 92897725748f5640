package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolamcraft/catalog/internal/auth"
	"github.com/kolamcraft/catalog/internal/domain"
	"github.com/kolamcraft/catalog/internal/event"
	"github.com/kolamcraft/catalog/internal/service"
	"github.com/kolamcraft/catalog/internal/storage/memory"
	apperrors "github.com/kolamcraft/catalog/pkg/errors"
	"github.com/kolamcraft/catalog/pkg/health"
	pkgkafka "github.com/kolamcraft/catalog/pkg/kafka"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

// fakeRepo is an in-memory repository for exercising the full HTTP surface.
type fakeRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
	failList bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: make(map[string]domain.Product)}
}

func (r *fakeRepo) Insert(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = *p
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound("Product", id)
	}
	return &p, nil
}

func (r *fakeRepo) List(_ context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList {
		return nil, fmt.Errorf("connection refused")
	}
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return apperrors.NotFound("Product", p.ID)
	}
	r.products[p.ID] = *p
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return apperrors.NotFound("Product", id)
	}
	delete(r.products, id)
	return nil
}

// staticVerifier resolves fixed tokens to identities.
type staticVerifier struct {
	identities map[string]*auth.Identity
}

func (v *staticVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	identity, ok := v.identities[token]
	if !ok {
		return nil, fmt.Errorf("unknown token")
	}
	return identity, nil
}

// ---------------------------------------------------------------------------
// harness
// ---------------------------------------------------------------------------

const (
	adminToken    = "admin-token"
	customerToken = "customer-token"
	adminEmail    = "admin@kolamcraft.example"
)

type testEnv struct {
	server *httptest.Server
	repo   *fakeRepo
	store  *memory.Storage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	repo := newFakeRepo()
	store := memory.New("http://localhost:5000")
	kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:9092"}), logger)
	producer := event.NewProducer(kafkaProducer, logger)
	svc := service.NewProductService(repo, store, producer, logger)

	verifier := &staticVerifier{identities: map[string]*auth.Identity{
		adminToken:    {ID: "u-1", Email: adminEmail},
		customerToken: {ID: "u-2", Email: "shopper@example.com"},
	}}
	gate := auth.NewGate(verifier, []string{adminEmail}, logger)

	router := NewRouter(svc, gate, health.NewHandler(), RouterConfig{
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}, logger)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, repo: repo, store: store}
}

// multipartBody builds a product form with an optional image part.
func multipartBody(t *testing.T, fields map[string]string, imageName, imageType string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	if imageName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, imageName))
		h.Set("Content-Type", imageType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(imageData)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func (e *testEnv) createProduct(t *testing.T, name string) domain.Product {
	t.Helper()

	body, ct := multipartBody(t, map[string]string{
		"name":        name,
		"description": "Traditional stencil",
		"size":        "8x8",
	}, "photo.jpg", "image/jpeg", []byte("fake jpeg bytes"))

	resp := e.do(t, http.MethodPost, "/api/products", adminToken, body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, resp, &out)
	return out.Product
}

// ---------------------------------------------------------------------------
// read endpoints
// ---------------------------------------------------------------------------

func TestListProducts_EmptyCatalog(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/products", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, resp, &out)
	assert.NotNil(t, out.Products)
	assert.Empty(t, out.Products)
}

func TestListProducts_NewestFirst(t *testing.T) {
	env := newTestEnv(t)

	first := env.createProduct(t, "First")
	time.Sleep(5 * time.Millisecond)
	second := env.createProduct(t, "Second")

	resp := env.do(t, http.MethodGet, "/api/products", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, resp, &out)
	require.Len(t, out.Products, 2)
	assert.Equal(t, second.ID, out.Products[0].ID)
	assert.Equal(t, first.ID, out.Products[1].ID)
}

func TestListProducts_RepositoryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.failList = true

	resp := env.do(t, http.MethodGet, "/api/products", "", nil, "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Failed to fetch products", out.Error)
}

func TestGetProduct_Success(t *testing.T) {
	env := newTestEnv(t)
	created := env.createProduct(t, "Lotus Kolam")

	resp := env.do(t, http.MethodGet, "/api/products/"+created.ID, "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, created.ID, out.Product.ID)
	assert.Equal(t, "Lotus Kolam", out.Product.Name)
	assert.Equal(t, created.ImageURL, out.Product.ImageURL)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/products/unknown-id", "", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Product not found", out.Error)
}

// ---------------------------------------------------------------------------
// auth gate
// ---------------------------------------------------------------------------

func TestWriteEndpoints_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"name": "Lotus", "description": "desc", "size": "8x8",
	}, "photo.jpg", "image/jpeg", []byte("data"))

	resp := env.do(t, http.MethodPost, "/api/products", "", body, ct)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Unauthorized: No token provided", out.Error)
}

func TestWriteEndpoints_MalformedAuthHeader(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodDelete, env.server.URL+"/api/products/some-id", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestWriteEndpoints_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodDelete, "/api/products/some-id", "bogus-token", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Unauthorized: Invalid session", out.Error)
}

func TestWriteEndpoints_NonAdminForbidden(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodDelete, "/api/products/some-id", customerToken, nil, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Forbidden: Admin access required", out.Error)
}

func TestReadEndpoints_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/products", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// ---------------------------------------------------------------------------
// create
// ---------------------------------------------------------------------------

func TestCreateProduct_Success(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"name":        "Lotus Kolam",
		"description": "Traditional lotus stencil",
		"size":        "8x8",
		"price":       "250",
	}, "lotus.jpg", "image/jpeg", []byte("fake jpeg bytes"))

	resp := env.do(t, http.MethodPost, "/api/products", adminToken, body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, resp, &out)
	assert.NotEmpty(t, out.Product.ID)
	assert.Equal(t, "8x8", out.Product.Size)
	require.NotNil(t, out.Product.Price)
	assert.Equal(t, "250", *out.Product.Price)
	assert.Nil(t, out.Product.Material)
	assert.Contains(t, out.Product.ImageURL, "http://localhost:5000/images/")

	// The blob landed in the store.
	assert.Equal(t, 1, env.store.Len())
}

func TestCreateProduct_MissingRequiredField(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"name": "Lotus", "description": "", "size": "8x8",
	}, "photo.jpg", "image/jpeg", []byte("data"))

	resp := env.do(t, http.MethodPost, "/api/products", adminToken, body, ct)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Name, description, and size are required", out.Error)

	// Nothing persisted.
	assert.Empty(t, env.repo.products)
}

func TestCreateProduct_MissingImage(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"name": "Lotus", "description": "desc", "size": "8x8",
	}, "", "", nil)

	resp := env.do(t, http.MethodPost, "/api/products", adminToken, body, ct)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Product image is required", out.Error)
	assert.Empty(t, env.repo.products)
}

func TestCreateProduct_MissingFieldsAndImage(t *testing.T) {
	env := newTestEnv(t)

	// Field validation wins over image presence when both are missing.
	body, ct := multipartBody(t, map[string]string{}, "", "", nil)

	resp := env.do(t, http.MethodPost, "/api/products", adminToken, body, ct)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Name, description, and size are required", out.Error)
	assert.Empty(t, env.repo.products)
}

func TestCreateProduct_RejectedFileType(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"name": "Lotus", "description": "desc", "size": "8x8",
	}, "doc.pdf", "application/pdf", []byte("%PDF-1.4"))

	resp := env.do(t, http.MethodPost, "/api/products", adminToken, body, ct)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Invalid file type. Only JPEG, PNG, WebP, and GIF are allowed.", out.Error)
	assert.Equal(t, 0, env.store.Len())
}

// ---------------------------------------------------------------------------
// update
// ---------------------------------------------------------------------------

func TestUpdateProduct_KeepsImageWhenOmitted(t *testing.T) {
	env := newTestEnv(t)
	created := env.createProduct(t, "Lotus Kolam")

	body, ct := multipartBody(t, map[string]string{
		"name":        "Renamed Lotus",
		"description": "Updated description",
		"size":        "10x10",
	}, "", "", nil)

	resp := env.do(t, http.MethodPut, "/api/products/"+created.ID, adminToken, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, created.ID, out.Product.ID)
	assert.Equal(t, "Renamed Lotus", out.Product.Name)
	assert.Equal(t, "10x10", out.Product.Size)
	assert.Equal(t, created.ImageURL, out.Product.ImageURL)
	assert.Equal(t, created.CreatedAt, out.Product.CreatedAt)
	assert.True(t, out.Product.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdateProduct_ReplacesImage(t *testing.T) {
	env := newTestEnv(t)
	created := env.createProduct(t, "Lotus Kolam")

	body, ct := multipartBody(t, map[string]string{
		"name":        "Lotus Kolam",
		"description": "Traditional stencil",
		"size":        "8x8",
	}, "new.png", "image/png", []byte("fake png bytes"))

	resp := env.do(t, http.MethodPut, "/api/products/"+created.ID, adminToken, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, resp, &out)
	assert.NotEqual(t, created.ImageURL, out.Product.ImageURL)

	// Old blob removed, new blob stored.
	assert.Equal(t, 1, env.store.Len())
}

func TestUpdateProduct_ImageReplacementSurvivesOldBlobDeleteFailure(t *testing.T) {
	env := newTestEnv(t)
	created := env.createProduct(t, "Lotus Kolam")
	env.store.FailDelete = true

	body, ct := multipartBody(t, map[string]string{
		"name":        "Lotus Kolam",
		"description": "Traditional stencil",
		"size":        "8x8",
	}, "new.png", "image/png", []byte("fake png bytes"))

	resp := env.do(t, http.MethodPut, "/api/products/"+created.ID, adminToken, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, resp, &out)
	assert.NotEqual(t, created.ImageURL, out.Product.ImageURL)

	// Product is still fetchable with the new image URL.
	getResp := env.do(t, http.MethodGet, "/api/products/"+created.ID, "", nil, "")
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	getResp.Body.Close()
}

func TestUpdateProduct_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"name": "Lotus", "description": "desc", "size": "8x8",
	}, "", "", nil)

	resp := env.do(t, http.MethodPut, "/api/products/unknown-id", adminToken, body, ct)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Product not found", out.Error)
}

// ---------------------------------------------------------------------------
// delete
// ---------------------------------------------------------------------------

func TestDeleteProduct_Success(t *testing.T) {
	env := newTestEnv(t)
	created := env.createProduct(t, "Lotus Kolam")

	resp := env.do(t, http.MethodDelete, "/api/products/"+created.ID, adminToken, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Message string `json:"message"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "Product deleted successfully", out.Message)

	// Record and blob both gone.
	getResp := env.do(t, http.MethodGet, "/api/products/"+created.ID, "", nil, "")
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	getResp.Body.Close()
	assert.Equal(t, 0, env.store.Len())
}

func TestDeleteProduct_RemovesRecordDespiteBlobFailure(t *testing.T) {
	env := newTestEnv(t)
	created := env.createProduct(t, "Lotus Kolam")
	env.store.FailDelete = true

	resp := env.do(t, http.MethodDelete, "/api/products/"+created.ID, adminToken, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	getResp := env.do(t, http.MethodGet, "/api/products/"+created.ID, "", nil, "")
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	getResp.Body.Close()
}

func TestDeleteProduct_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodDelete, "/api/products/unknown-id", adminToken, nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// ---------------------------------------------------------------------------
// health
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/health", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "ok", out.Status)

	_, err := time.Parse(time.RFC3339, out.Timestamp)
	assert.NoError(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
