package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"jewelflow/internal/apiclient"
	"jewelflow/internal/model"
	"jewelflow/pkg/apierror"
)

// Doer is the request primitive the resource helpers are built on.
// *apiclient.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, method string, path string, body any, out any) error
}

var _ Doer = (*apiclient.Client)(nil)

type Categories struct {
	api Doer
}

func NewCategories(api Doer) *Categories {
	return &Categories{api: api}
}

func (c *Categories) List(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.api.Do(ctx, http.MethodGet, apiclient.PathCategories, nil, &out); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (c *Categories) Get(ctx context.Context, id int64) (*model.Category, error) {
	var out model.Category
	if err := c.api.Do(ctx, http.MethodGet, apiclient.CategoryPath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return &out, nil
}

func (c *Categories) Create(ctx context.Context, req model.CategoryRequest) (*model.Category, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	var out model.Category
	if err := c.api.Do(ctx, http.MethodPost, apiclient.PathCategories, req, &out); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &out, nil
}

func (c *Categories) Update(ctx context.Context, id int64, req model.CategoryRequest) (*model.Category, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	var out model.Category
	if err := c.api.Do(ctx, http.MethodPut, apiclient.CategoryPath(id), req, &out); err != nil {
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	return &out, nil
}

func (c *Categories) SetActive(ctx context.Context, id int64, active bool) (*model.Category, error) {
	var out model.Category
	if err := c.api.Do(ctx, http.MethodPatch, apiclient.CategoryPath(id), model.StatusRequest{IsActive: &active}, &out); err != nil {
		return nil, fmt.Errorf("set category %d active=%t: %w", id, active, err)
	}
	return &out, nil
}

func (c *Categories) Delete(ctx context.Context, id int64) error {
	if err := c.api.Do(ctx, http.MethodDelete, apiclient.CategoryPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

// BulkDelete removes every id in one request. Ids go over the wire as strings.
func (c *Categories) BulkDelete(ctx context.Context, ids []int64) (*model.BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, errors.New("bulk delete: no ids given")
	}

	req := model.BulkDeleteRequest{IDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		req.IDs = append(req.IDs, strconv.FormatInt(id, 10))
	}

	var out model.BulkDeleteResult
	if err := c.api.Do(ctx, http.MethodDelete, apiclient.PathCategoriesBulk, req, &out); err != nil {
		return nil, fmt.Errorf("bulk delete categories: %w", err)
	}
	return &out, nil
}

func validate(req *model.CategoryRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return apierror.Validation("invalid category", map[string][]string{
			"name": {"This field may not be blank."},
		})
	}
	return nil
}
