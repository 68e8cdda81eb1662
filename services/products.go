package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/wastewise/api/utils"
)

// ProductCacheTTL is how long a found product stays cached.
const ProductCacheTTL = 24 * time.Hour

var barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)

// Product is the subset of an Open Food Facts product the client pre-fills purchases with.
type Product struct {
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
	ImageURL string `json:"image_url"`
}

// ProductLookup resolves a barcode.
type ProductLookup interface {
	Lookup(ctx context.Context, barcode string) (Product, error)
}

// ValidBarcode reports whether code is an EAN/UPC style barcode.
func ValidBarcode(code string) bool {
	return barcodePattern.MatchString(code)
}

// OpenFoodFactsClient queries the Open Food Facts v2 product API.
type OpenFoodFactsClient struct {
	baseURL string
	http    *http.Client
}

func NewOpenFoodFactsClient(baseURL string, client *http.Client) *OpenFoodFactsClient {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	return &OpenFoodFactsClient{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName    string   `json:"product_name"`
		Brands         string   `json:"brands"`
		CategoriesTags []string `json:"categories_tags"`
		ImageFrontURL  string   `json:"image_front_url"`
	} `json:"product"`
}

func (c *OpenFoodFactsClient) Lookup(ctx context.Context, barcode string) (Product, error) {
	if !ValidBarcode(barcode) {
		return Product{}, ErrInvalidBarcode
	}
	url := fmt.Sprintf("%s/api/v2/product/%s.json?fields=product_name,brands,categories_tags,image_front_url", c.baseURL, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Product{}, err
	}
	req.Header.Set("User-Agent", "wastewise-api/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Product{}, ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Product{}, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	var body offResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Product{}, fmt.Errorf("%w: decode: %v", ErrUpstreamUnavailable, err)
	}
	if body.Status != 1 {
		return Product{}, ErrProductNotFound
	}

	p := Product{
		Barcode:  barcode,
		Name:     strings.TrimSpace(body.Product.ProductName),
		Brand:    firstCSV(body.Product.Brands),
		ImageURL: body.Product.ImageFrontURL,
	}
	if len(body.Product.CategoriesTags) > 0 {
		p.Category = categoryFromTag(body.Product.CategoriesTags[len(body.Product.CategoriesTags)-1])
	}
	return p, nil
}

// categoryFromTag turns "en:dairy-products" into "dairy products".
func categoryFromTag(tag string) string {
	if i := strings.Index(tag, ":"); i >= 0 {
		tag = tag[i+1:]
	}
	return strings.ReplaceAll(tag, "-", " ")
}

func firstCSV(s string) string {
	if i := strings.Index(s, ","); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// CachedProductLookup keeps found products in the shared cache. Misses and failures are not cached.
type CachedProductLookup struct {
	next ProductLookup
	ttl  time.Duration
}

func NewCachedProductLookup(next ProductLookup) *CachedProductLookup {
	return &CachedProductLookup{next: next, ttl: ProductCacheTTL}
}

func (c *CachedProductLookup) Lookup(ctx context.Context, barcode string) (Product, error) {
	if !ValidBarcode(barcode) {
		return Product{}, ErrInvalidBarcode
	}
	key := "cache:product:" + barcode
	var p Product
	if utils.CacheGetJSON(key, &p) {
		return p, nil
	}
	p, err := c.next.Lookup(ctx, barcode)
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) {
			utils.Sugar.Warnw("product lookup failed", "barcode", barcode, "error", err)
		}
		return Product{}, err
	}
	utils.CacheSetJSON(key, p, c.ttl)
	return p, nil
}
