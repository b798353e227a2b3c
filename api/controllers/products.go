package controllers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/api/responses"
	"github.com/angelmondragon/bakery-backend/api/validators"
	product "github.com/angelmondragon/bakery-backend/internal/products"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

const (
	productNotFoundMessage = "product not found"
	imageFormField         = "image"
)

// ProductList returns the catalog filtered by category, search text and availability.
func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		query := r.URL.Query()
		filters := product.ListFilters{Search: strings.TrimSpace(query.Get("search"))}
		if raw := strings.TrimSpace(query.Get("category")); raw != "" && !strings.EqualFold(raw, "all") {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			filters.Category = &category
		}
		available, err := validators.ParseQueryBool(r, "available")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if available != nil {
			filters.AvailableOnly = *available
		}

		products, err := svc.ListProducts(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func ProductGet(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id", productNotFoundMessage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ProductCreate accepts either a JSON body or a multipart form carrying an image file.
func ProductCreate(svc product.Service, maxUploadBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			input product.CreateProductInput
			image *product.ImageUpload
		)
		if isMultipart(r) {
			form, upload, cleanup, err := readProductForm(w, r, maxUploadBytes)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			defer cleanup()
			input, err = createInputFromForm(form)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if err := validators.ValidateStruct(&input); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			image = upload
		} else if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateProduct(r.Context(), input, image)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ProductUpdate applies a partial update; omitted fields stay unchanged.
func ProductUpdate(svc product.Service, maxUploadBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id", productNotFoundMessage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			input product.UpdateProductInput
			image *product.ImageUpload
		)
		if isMultipart(r) {
			form, upload, cleanup, err := readProductForm(w, r, maxUploadBytes)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			defer cleanup()
			input, err = updateInputFromForm(form)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if err := validators.ValidateStruct(&input); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			image = upload
		} else if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateProduct(r.Context(), id, input, image)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func ProductDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id", productNotFoundMessage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Product removed")
	}
}

type productForm map[string][]string

func (f productForm) value(key string) (string, bool) {
	values, ok := f[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func readProductForm(w http.ResponseWriter, r *http.Request, maxUploadBytes int64) (productForm, *product.ImageUpload, func(), error) {
	noop := func() {}
	if maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, noop, pkgerrors.New(pkgerrors.CodeValidation, "image exceeds upload limit")
		}
		return nil, nil, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	form := productForm(r.MultipartForm.Value)
	file, header, err := r.FormFile(imageFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil, cleanup, nil
	}
	if err != nil {
		cleanup()
		return nil, nil, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image upload")
	}
	closeAndCleanup := func() {
		_ = file.Close()
		cleanup()
	}
	return form, &product.ImageUpload{Filename: header.Filename, Reader: file}, closeAndCleanup, nil
}

func createInputFromForm(form productForm) (product.CreateProductInput, error) {
	var input product.CreateProductInput
	input.Name, _ = form.value("name")
	input.Description, _ = form.value("description")
	input.Category, _ = form.value("category")
	input.Image, _ = form.value("image")

	if raw, ok := form.value("price"); ok {
		price, err := parsePrice(raw)
		if err != nil {
			return input, err
		}
		input.Price = price
	}
	if raw, ok := form.value("available"); ok && raw != "" {
		available, err := parseFormBool("available", raw)
		if err != nil {
			return input, err
		}
		input.Available = &available
	}
	if raw, ok := form.value("ingredients"); ok {
		ingredients, err := parseIngredients(raw)
		if err != nil {
			return input, err
		}
		input.Ingredients = ingredients
	}
	return input, nil
}

func updateInputFromForm(form productForm) (product.UpdateProductInput, error) {
	var input product.UpdateProductInput
	if v, ok := form.value("name"); ok {
		input.Name = &v
	}
	if v, ok := form.value("description"); ok {
		input.Description = &v
	}
	if v, ok := form.value("category"); ok {
		input.Category = &v
	}
	if v, ok := form.value("image"); ok {
		input.Image = &v
	}
	if raw, ok := form.value("price"); ok {
		price, err := parsePrice(raw)
		if err != nil {
			return input, err
		}
		input.Price = &price
	}
	if raw, ok := form.value("available"); ok {
		available, err := parseFormBool("available", raw)
		if err != nil {
			return input, err
		}
		input.Available = &available
	}
	if raw, ok := form.value("ingredients"); ok {
		ingredients, err := parseIngredients(raw)
		if err != nil {
			return input, err
		}
		input.Ingredients = &ingredients
	}
	return input, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price must be a number").WithDetails(map[string]any{"field": "price"})
	}
	return price, nil
}

func parseFormBool(field, raw string) (bool, error) {
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "field must be a boolean").WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

// parseIngredients accepts a JSON array or a comma separated list.
func parseIngredients(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredients must be a JSON array of strings").WithDetails(map[string]any{"field": "ingredients"})
		}
		return list, nil
	}
	parts := strings.Split(raw, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list, nil
}
