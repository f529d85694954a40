package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rogerio-castellano/cellar-console/internal/models"
)

func (c *Client) ListProducts(ctx context.Context, creds Credentials) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/products", &creds, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, creds Credentials, id int) (models.Product, error) {
	var p models.Product
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), &creds, nil, &p)
	return p, err
}

func (c *Client) CreateProduct(ctx context.Context, creds Credentials, p models.Product) (models.Product, error) {
	p.ID = 0
	var created models.Product
	err := c.do(ctx, http.MethodPost, "/products", &creds, p, &created)
	return created, err
}

func (c *Client) UpdateProduct(ctx context.Context, creds Credentials, p models.Product) (models.Product, error) {
	var updated models.Product
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d", p.ID), &creds, p, &updated)
	return updated, err
}

func (c *Client) DeleteProduct(ctx context.Context, creds Credentials, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), &creds, nil, nil)
}
