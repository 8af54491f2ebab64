package services

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/repository"
)

const defaultLowStockThreshold = 5

// ProductService, katalog işlemleri.
type ProductService interface {
	// List: isAdmin false ise pasif ürünler her durumda filtrelenir.
	List(ctx context.Context, filter models.ProductFilter, isAdmin bool) (*models.PagedResult[models.Product], error)
	Get(ctx context.Context, id string, isAdmin bool) (*models.Product, error)
	// GetProducts, sipariş akışının ProductLookup ihtiyacını in-process karşılar.
	GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error)
	Categories(ctx context.Context) ([]string, error)

	Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	Update(ctx context.Context, id string, req *models.UpdateProductRequest) (*models.Product, error)
	// Delete soft'tur: is_active=false. Geçmiş siparişler ürünü göstermeye devam eder.
	Delete(ctx context.Context, id string) error
	UploadImage(ctx context.Context, id string, file io.Reader, size int64) (*models.Product, error)
}

// ProductCache, ürün değiştiğinde cache'teki kopyayı düşürmek için.
type ProductCache interface {
	Invalidate(ctx context.Context, productID string)
}

type productService struct {
	db          *sql.DB
	productRepo repository.ProductRepository
	cache       ProductCache // nil olabilir
	currency    string
	uploadDir   string
	maxSize     int64
}

func NewProductService(
	db *sql.DB,
	productRepo repository.ProductRepository,
	cache ProductCache,
	currency string,
	uploadDir string,
	maxSize int64,
) ProductService {
	return &productService{
		db:          db,
		productRepo: productRepo,
		cache:       cache,
		currency:    currency,
		uploadDir:   uploadDir,
		maxSize:     maxSize,
	}
}

func (s *productService) List(ctx context.Context, filter models.ProductFilter, isAdmin bool) (*models.PagedResult[models.Product], error) {
	if !isAdmin {
		filter.IncludeHidden = false
	}
	filter.Normalize()

	if filter.MinPriceCents > 0 && filter.MaxPriceCents > 0 && filter.MinPriceCents > filter.MaxPriceCents {
		return nil, fmt.Errorf("%w: min_price cannot exceed max_price", pkg.ErrBadRequest)
	}

	items, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := models.NewPagedResult(items, total, filter.Page)
	return &result, nil
}

func (s *productService) Get(ctx context.Context, id string, isAdmin bool) (*models.Product, error) {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !isAdmin {
		return nil, pkg.ErrNotFound
	}
	return p, nil
}

func (s *productService) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	return s.productRepo.GetByIDs(ctx, ids)
}

func (s *productService) Categories(ctx context.Context) ([]string, error) {
	return s.productRepo.Categories(ctx)
}

// Create, ürünü ve inventory satırını tek transaction'da açar.
func (s *productService) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}
	if currency != s.currency {
		return nil, fmt.Errorf("%w: store currency is %s", pkg.ErrBadRequest, s.currency)
	}

	threshold := defaultLowStockThreshold
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}

	product := &models.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    currency,
		Category:    req.Category,
		IsActive:    true,
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewSQLiteProductRepo(tx).Create(ctx, product); err != nil {
			return err
		}
		return repository.NewSQLiteInventoryRepo(tx).Create(ctx, &models.Inventory{
			ProductID:         product.ID,
			QuantityOnHand:    req.InitialStock,
			LowStockThreshold: threshold,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("product_id", product.ID).Str("sku", product.SKU).Msg("[product] product created")
	return product, nil
}

func (s *productService) Update(ctx context.Context, id string, req *models.UpdateProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(p)
	if err := s.productRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return p, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}

	p.IsActive = false
	if err := s.productRepo.Update(ctx, p); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	logger.Info().Str("product_id", id).Msg("[product] product deactivated")
	return nil
}

// imageExtensions, izin verilen görsel türleri; tür dosya içeriğinden tespit edilir,
// client'ın gönderdiği Content-Type'a güvenilmez.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (s *productService) UploadImage(ctx context.Context, id string, file io.Reader, size int64) (*models.Product, error) {
	if size > s.maxSize {
		return nil, fmt.Errorf("%w: file too large (max %dMB)", pkg.ErrBadRequest, s.maxSize/(1024*1024))
	}

	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(file, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	ext, ok := imageExtensions[http.DetectContentType(head)]
	if !ok {
		return nil, fmt.Errorf("%w: only jpeg, png, gif and webp images are allowed", pkg.ErrBadRequest)
	}

	suffix, err := randomHex(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate filename: %w", err)
	}
	filename := p.ID + "_" + suffix + ext

	dir := filepath.Join(s.uploadDir, "products")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	destPath := filepath.Join(dir, filename)
	dest, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dest.Close()

	// LimitReader: multipart header'ındaki boyut yanlış olsa bile diske maxSize'dan fazlası yazılmaz
	written, err := io.Copy(dest, io.LimitReader(br, s.maxSize+1))
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(destPath)
		return nil, fmt.Errorf("%w: file too large (max %dMB)", pkg.ErrBadRequest, s.maxSize/(1024*1024))
	}

	url := "/api/uploads/products/" + filename
	if err := s.productRepo.SetImage(ctx, p.ID, url); err != nil {
		os.Remove(destPath)
		return nil, err
	}

	if p.ImageURL != nil {
		old := filepath.Join(dir, filepath.Base(*p.ImageURL))
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", old).Msg("[product] failed to remove previous image")
		}
	}

	p.ImageURL = &url
	s.invalidate(ctx, p.ID)
	return p, nil
}

func (s *productService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}
