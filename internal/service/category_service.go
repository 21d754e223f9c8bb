package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"jewelflow/internal/event"
	"jewelflow/internal/model"
	"jewelflow/pkg/apierror"
)

const maxCategoryName = 100

type CategoryService struct {
	store CategoryStore
	bus   event.Bus
	now   func() time.Time
}

func NewCategoryService(store CategoryStore, bus event.Bus) *CategoryService {
	if bus == nil {
		bus = event.Nop{}
	}
	return &CategoryService{store: store, bus: bus, now: time.Now}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.store.List(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id int64) (model.Category, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return model.Category{}, mapCategoryError(err)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, actorID string, req model.CategoryRequest) (model.Category, error) {
	name, err := validateCategoryName(req.Name)
	if err != nil {
		return model.Category{}, err
	}

	now := s.now().UTC()
	c := model.Category{
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Description != nil {
		c.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.store.Create(ctx, &c); err != nil {
		return model.Category{}, mapCategoryError(err)
	}

	s.bus.Publish(event.New(event.TypeCategoryCreated, actorID, c))
	return c, nil
}

// Update replaces name and description. is_active changes only when given.
func (s *CategoryService) Update(ctx context.Context, actorID string, id int64, req model.CategoryRequest) (model.Category, error) {
	name, err := validateCategoryName(req.Name)
	if err != nil {
		return model.Category{}, err
	}

	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return model.Category{}, mapCategoryError(err)
	}

	c.Name = name
	c.Description = ""
	if req.Description != nil {
		c.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	c.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, c); err != nil {
		return model.Category{}, mapCategoryError(err)
	}

	s.bus.Publish(event.New(event.TypeCategoryUpdated, actorID, c))
	return c, nil
}

func (s *CategoryService) SetActive(ctx context.Context, actorID string, id int64, req model.StatusRequest) (model.Category, error) {
	if req.IsActive == nil {
		return model.Category{}, apierror.Validation("invalid status", map[string][]string{"is_active": {"This field is required."}})
	}

	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return model.Category{}, mapCategoryError(err)
	}

	c.IsActive = *req.IsActive
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, c); err != nil {
		return model.Category{}, mapCategoryError(err)
	}

	s.bus.Publish(event.New(event.TypeCategoryUpdated, actorID, c))
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, actorID string, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return mapCategoryError(err)
	}

	s.bus.Publish(event.New(event.TypeCategoryDeleted, actorID, map[string]any{"ids": []int64{id}}))
	return nil
}

// BulkDelete accepts ids as strings, the way the dashboard sends them.
// Ids that do not exist are ignored.
func (s *CategoryService) BulkDelete(ctx context.Context, actorID string, req model.BulkDeleteRequest) (model.BulkDeleteResult, error) {
	if len(req.IDs) == 0 {
		return model.BulkDeleteResult{}, apierror.Validation("invalid bulk delete", map[string][]string{"ids": {"This list may not be empty."}})
	}

	ids := make([]int64, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			return model.BulkDeleteResult{}, apierror.Validation("invalid bulk delete", map[string][]string{"ids": {"A valid integer is required."}})
		}
		ids = append(ids, id)
	}

	deleted, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return model.BulkDeleteResult{}, err
	}

	s.bus.Publish(event.New(event.TypeCategoryDeleted, actorID, map[string]any{"ids": ids, "deleted": deleted}))
	return model.BulkDeleteResult{Deleted: deleted}, nil
}

func validateCategoryName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", apierror.Validation("invalid category", map[string][]string{"name": {blankField}})
	case utf8.RuneCountInString(name) > maxCategoryName:
		return "", apierror.Validation("invalid category", map[string][]string{
			"name": {"Ensure this field has no more than " + strconv.Itoa(maxCategoryName) + " characters."},
		})
	}
	return name, nil
}

func mapCategoryError(err error) error {
	switch {
	case errors.Is(err, model.ErrCategoryNotFound):
		return apierror.New("not_found", "Not found.", "", http.StatusNotFound)
	case errors.Is(err, model.ErrCategoryExists):
		return apierror.Validation("invalid category", map[string][]string{"name": {"category with this name already exists."}})
	default:
		return err
	}
}
