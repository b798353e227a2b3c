package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/internal/users"
	"github.com/angelmondragon/bakery-backend/pkg/config"
	dbtypes "github.com/angelmondragon/bakery-backend/pkg/db/types"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/security"
)

const tempPasswordLength = 16

type seedResult struct {
	AdminCreated     bool
	AdminPassword    string
	ProductsInserted int
}

type seeder struct {
	db          *gorm.DB
	users       *users.Repository
	seedCfg     config.SeedConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

func newSeeder(conn *gorm.DB, cfg *config.Config, logg *logger.Logger) *seeder {
	return &seeder{
		db:          conn,
		users:       users.NewRepository(conn),
		seedCfg:     cfg.Seed,
		passwordCfg: cfg.Password,
		logg:        logg,
	}
}

// Run creates the admin account and the starter menu. Each step runs even
// when an earlier one fails; the failures are combined.
func (s *seeder) Run(ctx context.Context) (*seedResult, error) {
	result := &seedResult{}
	var errs error

	created, password, err := s.ensureAdmin(ctx)
	errs = multierr.Append(errs, err)
	result.AdminCreated = created
	result.AdminPassword = password

	inserted, err := s.ensureProducts(ctx)
	errs = multierr.Append(errs, err)
	result.ProductsInserted = inserted

	return result, errs
}

func (s *seeder) ensureAdmin(ctx context.Context) (bool, string, error) {
	email := strings.ToLower(strings.TrimSpace(s.seedCfg.AdminEmail))
	if email == "" {
		return false, "", errors.New("seed admin email is required")
	}
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		s.logg.Info(s.logg.WithField(ctx, "email", email), "seed.admin_exists")
		return false, "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, "", fmt.Errorf("lookup admin: %w", err)
	}

	password := s.seedCfg.AdminPassword
	generated := password == ""
	if generated {
		password, err = security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return false, "", fmt.Errorf("generate admin password: %w", err)
		}
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return false, "", fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := s.users.Create(ctx, users.NewUser{
		Name:         strings.TrimSpace(s.seedCfg.AdminName),
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleAdmin,
	}); err != nil {
		return false, "", fmt.Errorf("create admin: %w", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "email", email), "seed.admin_created")
	if !generated {
		password = ""
	}
	return true, password, nil
}

func (s *seeder) ensureProducts(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	var errs error
	inserted := 0
	for _, p := range starterMenu() {
		product := p
		if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
			errs = multierr.Append(errs, fmt.Errorf("insert %s: %w", p.Name, err))
			continue
		}
		inserted++
	}
	s.logg.Info(s.logg.WithField(ctx, "inserted", inserted), "seed.products_created")
	return inserted, errs
}

func starterMenu() []models.Product {
	return []models.Product{
		{
			Name:        "Country Sourdough",
			Description: "Naturally leavened loaf with a crackling crust.",
			Category:    enums.ProductCategoryBread,
			Price:       decimal.RequireFromString("8.50"),
			Available:   true,
			Ingredients: dbtypes.StringList{"flour", "water", "salt", "levain"},
		},
		{
			Name:        "Butter Croissant",
			Description: "Laminated dough, baked every morning.",
			Category:    enums.ProductCategoryBread,
			Price:       decimal.RequireFromString("3.75"),
			Available:   true,
			Ingredients: dbtypes.StringList{"flour", "butter", "milk", "sugar", "yeast"},
		},
		{
			Name:        "Lemon Tart",
			Description: "Shortcrust shell filled with lemon curd.",
			Category:    enums.ProductCategoryDessert,
			Price:       decimal.RequireFromString("5.25"),
			Available:   true,
			Ingredients: dbtypes.StringList{"flour", "butter", "lemon", "eggs", "sugar"},
		},
		{
			Name:        "Chocolate Eclair",
			Description: "Choux pastry with vanilla cream and dark glaze.",
			Category:    enums.ProductCategoryDessert,
			Price:       decimal.RequireFromString("4.50"),
			Available:   true,
			Ingredients: dbtypes.StringList{"flour", "eggs", "cream", "chocolate"},
		},
		{
			Name:        "Seasonal Galette",
			Description: "Rustic fruit galette with whatever the market brings.",
			Category:    enums.ProductCategorySpecial,
			Price:       decimal.RequireFromString("18.00"),
			Available:   true,
			Ingredients: dbtypes.StringList{"flour", "butter", "seasonal fruit"},
		},
	}
}
