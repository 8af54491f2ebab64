package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/services"
)

// maxBatchIDs, /api/products/batch tek istekte kabul edilen id sayısı.
const maxBatchIDs = 100

// ProductHandler, katalog endpoint'leri.
type ProductHandler struct {
	productService services.ProductService
	maxUploadSize  int64
}

func NewProductHandler(productService services.ProductService, maxUploadSize int64) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		maxUploadSize:  maxUploadSize,
	}
}

// List godoc
// GET /api/products?category=&q=&min_price=&max_price=&sort=&page=&per_page=
//
// Admin token ile ?include_hidden=true pasif ürünleri de getirir.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ProductFilter{
		Category:      q.Get("category"),
		Search:        q.Get("q"),
		MinPriceCents: queryInt64(q.Get("min_price")),
		MaxPriceCents: queryInt64(q.Get("max_price")),
		IncludeHidden: q.Get("include_hidden") == "true",
		Sort:          models.ProductSort(q.Get("sort")),
		Page:          parsePage(r),
	}

	user := optionalUser(r)
	result, err := h.productService.List(r.Context(), filter, user != nil && user.IsAdmin())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// Get godoc
// GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := optionalUser(r)
	product, err := h.productService.Get(r.Context(), r.PathValue("id"), user != nil && user.IsAdmin())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, product)
}

// Batch godoc
// GET /api/products/batch?ids=a,b,c
//
// Servisler arası toplu okuma. Pasif ürünler de döner; bulunamayan id'ler atlanır.
// Response data'sı dizi: [ {product}, ... ]
func (h *ProductHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "ids query parameter is required")
		return
	}
	if len(ids) > maxBatchIDs {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, fmt.Sprintf("at most %d ids per request", maxBatchIDs))
		return
	}

	found, err := h.productService.GetProducts(r.Context(), ids)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	// İstek sırası korunur
	products := make([]models.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			products = append(products, *p)
			delete(found, id)
		}
	}

	pkg.JSON(w, http.StatusOK, products)
}

// Categories godoc
// GET /api/products/categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.Categories(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, categories)
}

// Create godoc
// POST /api/products (admin)
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, product)
}

// Update godoc
// PATCH /api/products/{id} (admin)
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProductRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, product)
}

// Delete godoc
// DELETE /api/products/{id} (admin)
// Soft delete: ürün pasife çekilir.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.productService.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "product deactivated"})
}

// UploadImage godoc
// POST /api/products/{id}/image (admin)
// Content-Type: multipart/form-data, "file" alanı
//
// İçerik tipi kontrolü ve diske yazma service'te yapılır.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	// Multipart overhead için 1MB pay
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	product, err := h.productService.UploadImage(r.Context(), r.PathValue("id"), file, header.Size)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, product)
}
