// Package clients, sipariş akışının ürün ve stok bağımlılıklarının uzak
// (REST) ve cache'li implementasyonlarını içerir.
//
// services.ProductLookup ve services.InventoryGateway interface'lerini
// yapısal olarak karşılar; services paketini import etmez.
package clients

import (
	"context"
	"net/url"
	"strings"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg/svcclient"
)

// batchPath, ürün servisinin toplu okuma endpoint'i. Pasif ürünleri de döner;
// aktiflik kararı sipariş akışında verilir.
const batchPath = "/api/products/batch"

// maxBatchIDs, tek istekte sorgulanacak id sayısı (URL uzunluğu sınırı).
const maxBatchIDs = 100

// RemoteProducts, ayrı çalışan ürün servisine svcclient üzerinden bağlanır.
type RemoteProducts struct {
	client *svcclient.Client
}

func NewRemoteProducts(client *svcclient.Client) *RemoteProducts {
	return &RemoteProducts{client: client}
}

// GetProducts, id'leri parça parça GET ile sorgular. GET olduğu için
// svcclient geçici hatalarda tekrar dener.
func (p *RemoteProducts) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	result := make(map[string]*models.Product, len(ids))

	for start := 0; start < len(ids); start += maxBatchIDs {
		end := min(start+maxBatchIDs, len(ids))

		var products []models.Product
		path := batchPath + "?ids=" + url.QueryEscape(strings.Join(ids[start:end], ","))
		if err := p.client.Get(ctx, path, &products); err != nil {
			return nil, err
		}
		for i := range products {
			result[products[i].ID] = &products[i]
		}
	}
	return result, nil
}
