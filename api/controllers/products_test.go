package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	product "github.com/angelmondragon/bakery-backend/internal/products"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

type stubProductService struct {
	listFn   func(ctx context.Context, filters product.ListFilters) ([]product.ProductDTO, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error)
	createFn func(ctx context.Context, input product.CreateProductInput, image *product.ImageUpload) (*product.ProductDTO, error)
	updateFn func(ctx context.Context, id uuid.UUID, input product.UpdateProductInput, image *product.ImageUpload) (*product.ProductDTO, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (s stubProductService) ListProducts(ctx context.Context, filters product.ListFilters) ([]product.ProductDTO, error) {
	return s.listFn(ctx, filters)
}

func (s stubProductService) GetProduct(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error) {
	return s.getFn(ctx, id)
}

func (s stubProductService) CreateProduct(ctx context.Context, input product.CreateProductInput, image *product.ImageUpload) (*product.ProductDTO, error) {
	return s.createFn(ctx, input, image)
}

func (s stubProductService) UpdateProduct(ctx context.Context, id uuid.UUID, input product.UpdateProductInput, image *product.ImageUpload) (*product.ProductDTO, error) {
	return s.updateFn(ctx, id, input, image)
}

func (s stubProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func TestProductListFilters(t *testing.T) {
	svc := stubProductService{
		listFn: func(ctx context.Context, filters product.ListFilters) ([]product.ProductDTO, error) {
			require.NotNil(t, filters.Category)
			require.Equal(t, enums.ProductCategoryBread, *filters.Category)
			require.Equal(t, "rye", filters.Search)
			require.True(t, filters.AvailableOnly)
			return []product.ProductDTO{{Name: "Rye loaf"}}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/products?category=bread&search=rye&available=true", nil)
	resp := httptest.NewRecorder()
	ProductList(svc, logger.Nop()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Rye loaf")
}

func TestProductListAllCategory(t *testing.T) {
	svc := stubProductService{
		listFn: func(ctx context.Context, filters product.ListFilters) ([]product.ProductDTO, error) {
			require.Nil(t, filters.Category)
			return nil, nil
		},
	}
	resp := httptest.NewRecorder()
	ProductList(svc, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products?category=all", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	ProductList(svc, logger.Nop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products?category=flowers", nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProductCreateJSON(t *testing.T) {
	svc := stubProductService{
		createFn: func(ctx context.Context, input product.CreateProductInput, image *product.ImageUpload) (*product.ProductDTO, error) {
			require.Nil(t, image)
			require.Equal(t, "Croissant", input.Name)
			require.True(t, input.Price.Equal(decimal.RequireFromString("3.25")))
			return &product.ProductDTO{ID: uuid.New(), Name: input.Name}, nil
		},
	}
	body := `{"name":"Croissant","description":"Butter layers","category":"bread","price":3.25,"ingredients":["flour","butter"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	ProductCreate(svc, 1<<20, logger.Nop()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code)
}

func TestProductCreateMultipart(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "Tart"))
	require.NoError(t, form.WriteField("description", "Lemon curd"))
	require.NoError(t, form.WriteField("category", "dessert"))
	require.NoError(t, form.WriteField("price", "6.00"))
	require.NoError(t, form.WriteField("available", "false"))
	require.NoError(t, form.WriteField("ingredients", `["lemon","sugar"]`))
	part, err := form.CreateFormFile("image", "tart.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	svc := stubProductService{
		createFn: func(ctx context.Context, input product.CreateProductInput, image *product.ImageUpload) (*product.ProductDTO, error) {
			require.NotNil(t, image)
			require.Equal(t, "tart.png", image.Filename)
			data, err := io.ReadAll(image.Reader)
			require.NoError(t, err)
			require.Equal(t, png, data)
			require.Equal(t, "dessert", input.Category)
			require.NotNil(t, input.Available)
			require.False(t, *input.Available)
			require.Equal(t, []string{"lemon", "sugar"}, input.Ingredients)
			return &product.ProductDTO{ID: uuid.New()}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/products", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp := httptest.NewRecorder()
	ProductCreate(svc, 1<<20, logger.Nop()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code)
}

func TestProductUpdateMultipartPartial(t *testing.T) {
	id := uuid.New()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("price", "4.10"))
	require.NoError(t, form.WriteField("ingredients", "flour, water ,salt"))
	require.NoError(t, form.Close())

	svc := stubProductService{
		updateFn: func(ctx context.Context, gotID uuid.UUID, input product.UpdateProductInput, image *product.ImageUpload) (*product.ProductDTO, error) {
			require.Equal(t, id, gotID)
			require.Nil(t, image)
			require.Nil(t, input.Name)
			require.NotNil(t, input.Price)
			require.Equal(t, []string{"flour", "water", "salt"}, *input.Ingredients)
			return &product.ProductDTO{ID: id}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/api/products/"+id.String(), &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req = withURLParam(req, "id", id.String())
	resp := httptest.NewRecorder()
	ProductUpdate(svc, 1<<20, logger.Nop()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestProductCreateMultipartBadPrice(t *testing.T) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "Tart"))
	require.NoError(t, form.WriteField("price", "cheap"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp := httptest.NewRecorder()
	ProductCreate(stubProductService{}, 1<<20, logger.Nop()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProductDeleteMalformedID(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/products/nope", nil), "id", "nope")
	resp := httptest.NewRecorder()
	ProductDelete(stubProductService{}, logger.Nop()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
