package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/bakery-backend/pkg/db/types"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	ListProducts(ctx context.Context, filters ListFilters) ([]ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput, image *ImageUpload) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput, image *ImageUpload) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type productStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filters ListFilters) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type imageStore interface {
	Save(upload ImageUpload) (string, error)
	Remove(publicPath string) error
}

type service struct {
	repo   productStore
	images imageStore
	logg   *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo productStore, images imageStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if images == nil {
		return nil, fmt.Errorf("image store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, images: images, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context, filters ListFilters) ([]ProductDTO, error) {
	products, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *NewProductDTO(&products[i]))
	}
	return out, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

// CreateProduct stores the product, saving the uploaded image first when present.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput, image *ImageUpload) (*ProductDTO, error) {
	category, err := parseCategory(input.Category)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and description are required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	available := true
	if input.Available != nil {
		available = *input.Available
	}
	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Category:    category,
		Price:       input.Price.Round(2),
		Image:       strings.TrimSpace(input.Image),
		Available:   available,
		Ingredients: dbtypes.StringList(input.Ingredients).Normalize(),
	}

	if image != nil {
		path, err := s.images.Save(*image)
		if err != nil {
			return nil, err
		}
		product.Image = path
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		s.discardImage(ctx, image, product.Image)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", created.ID.String()), "products.created")
	return NewProductDTO(created), nil
}

// UpdateProduct applies the provided fields and swaps the image when a new one is uploaded.
func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput, image *ImageUpload) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previousImage := product.Image
	if err := applyUpdateToProduct(product, input); err != nil {
		return nil, err
	}

	if image != nil {
		path, err := s.images.Save(*image)
		if err != nil {
			return nil, err
		}
		product.Image = path
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		s.discardImage(ctx, image, product.Image)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	if updated.Image != previousImage {
		s.removeImage(ctx, previousImage)
	}
	return NewProductDTO(updated), nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	s.removeImage(ctx, product.Image)
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) discardImage(ctx context.Context, upload *ImageUpload, path string) {
	if upload == nil {
		return
	}
	s.removeImage(ctx, path)
}

func (s *service) removeImage(ctx context.Context, path string) {
	if err := s.images.Remove(path); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "image", path), "products.image_cleanup_failed")
	}
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		product.Description = description
	}
	if input.Category != nil {
		category, err := parseCategory(*input.Category)
		if err != nil {
			return err
		}
		product.Category = category
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		product.Price = input.Price.Round(2)
	}
	if input.Image != nil {
		image := strings.TrimSpace(*input.Image)
		if image == "" {
			image = models.DefaultProductImage
		}
		product.Image = image
	}
	if input.Available != nil {
		product.Available = *input.Available
	}
	if input.Ingredients != nil {
		product.Ingredients = dbtypes.StringList(*input.Ingredients).Normalize()
	}
	return nil
}

func parseCategory(value string) (enums.ProductCategory, error) {
	category, err := enums.ParseProductCategory(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	return category, nil
}
