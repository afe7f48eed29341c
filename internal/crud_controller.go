package internal

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lychee-technology/formadmin"
	"go.uber.org/zap"
)

// CRUDController serves the list, edit, new and delete actions of one model.
// It holds no per-request state; every call receives its request explicitly.
type CRUDController struct {
	model       *formadmin.Model
	normalizer  *FieldNormalizer
	store       formadmin.Store
	editor      *RecordEditor
	queries     *ListQueryBuilder
	routePrefix string
}

func NewCRUDController(
	model *formadmin.Model,
	registry formadmin.ModelRegistry,
	store formadmin.Store,
	files formadmin.FileStore,
	config *formadmin.Config,
) *CRUDController {
	return &CRUDController{
		model:       model,
		normalizer:  NewFieldNormalizer(model, registry, config.Admin.RoutePrefix),
		store:       store,
		editor:      NewRecordEditor(store, files, config.Admin.WebRoot),
		queries:     NewListQueryBuilder(config.Query),
		routePrefix: config.Admin.RoutePrefix,
	}
}

func (c *CRUDController) Model() *formadmin.Model {
	return c.model
}

// CheckFields normalizes both field sets once so definition errors surface at startup.
func (c *CRUDController) CheckFields() error {
	scope := c.scope()
	if _, err := scope.ListFields(); err != nil {
		return err
	}
	_, err := scope.EditFields()
	return err
}

func (c *CRUDController) ListPath() string {
	return c.routePrefix + "/" + strings.ToLower(c.model.Name)
}

func (c *CRUDController) EditPath(id any) string {
	return c.ListPath() + "/edit/" + stringify(id)
}

func (c *CRUDController) scope() *fieldScope {
	return newFieldScope(c.model, c.normalizer)
}

func (c *CRUDController) view(name, title string) *formadmin.View {
	return &formadmin.View{
		Name:        name,
		Model:       c.model.Name,
		ModelName:   c.model.DisplayName,
		PageTitle:   title,
		PageHeader:  title,
		RoutePrefix: c.routePrefix,
	}
}

// List renders the list page, or for data requests returns one formatted page of rows.
func (c *CRUDController) List(ctx context.Context, req *formadmin.Request) (*formadmin.Response, error) {
	fields, err := c.scope().ListFields()
	if err != nil {
		return nil, err
	}

	if !req.DataRequest {
		v := c.view("list", c.model.DisplayNamePlural)
		v.ListFields = fields
		return formadmin.ViewResponse(http.StatusOK, v), nil
	}

	query := c.queries.Build(req.Query, fields)

	total, err := c.store.Count(ctx, c.model)
	if err != nil {
		return nil, err
	}
	result, err := c.store.Find(ctx, c.model, query)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, FormatRow(record, fields))
	}

	zap.S().Debugw("list page served", "model", c.model.Name, "page", query.Page, "pageSize", query.PageSize, "rows", len(rows))
	return formadmin.JSONResponse(&formadmin.ListPayload{
		Data:            rows,
		RecordsTotal:    total,
		RecordsFiltered: result.Filtered,
	}), nil
}

// Edit shows an existing record and applies submissions to it.
func (c *CRUDController) Edit(ctx context.Context, req *formadmin.Request) (*formadmin.Response, error) {
	if req.ID == "" {
		return nil, formadmin.NewMissingIdentifierError(c.model.Name)
	}
	entity, err := c.store.Load(ctx, c.model, req.ID)
	if err != nil {
		return nil, err
	}
	return c.editForm(ctx, req, entity, "Edit "+c.model.DisplayName)
}

// New shows an empty form and creates a record on submission.
func (c *CRUDController) New(ctx context.Context, req *formadmin.Request) (*formadmin.Response, error) {
	return c.editForm(ctx, req, formadmin.NewEntity(c.model), "Add new "+c.model.DisplayName)
}

func (c *CRUDController) editForm(ctx context.Context, req *formadmin.Request, entity *formadmin.Entity, title string) (*formadmin.Response, error) {
	scope := c.scope()
	fields, err := scope.EditFields()
	if err != nil {
		return nil, err
	}

	status := http.StatusOK
	var messages []string
	if req.IsSubmission() {
		saved, err := c.editor.Submit(ctx, c.model, entity, req, fields)
		if err == nil {
			return formadmin.RedirectResponse(c.EditPath(saved.ID)), nil
		}
		if !formadmin.IsValidation(err) {
			return nil, err
		}
		zap.S().Infow("record rejected", "model", c.model.Name, "error", err)
		entity = saved
		status = http.StatusUnprocessableEntity
		messages = validationMessages(err)
	}

	v := c.view("edit", title)
	v.EditFields = fields
	v.Record = entity
	v.Errors = messages
	return formadmin.ViewResponse(status, v), nil
}

// Delete removes a record. Only submissions are accepted.
func (c *CRUDController) Delete(ctx context.Context, req *formadmin.Request) (*formadmin.Response, error) {
	if !req.IsSubmission() {
		return nil, formadmin.NewMethodNotAllowedError(c.model.Name, req.Method)
	}
	if req.ID == "" {
		return nil, formadmin.NewMissingIdentifierError(c.model.Name)
	}
	entity, err := c.store.Load(ctx, c.model, req.ID)
	if err != nil {
		return nil, err
	}
	if err := c.store.Delete(ctx, c.model, entity); err != nil {
		return nil, err
	}

	zap.S().Infow("record deleted", "model", c.model.Name, "id", entity.ID, "user", req.UserID)

	location := c.ListPath()
	if req.DataRequest {
		return formadmin.JSONResponse(&formadmin.DeleteAck{Success: 1, Location: location}), nil
	}
	return formadmin.RedirectResponse(location), nil
}

func validationMessages(err error) []string {
	var adminErr *formadmin.AdminError
	if !errors.As(err, &adminErr) {
		return []string{err.Error()}
	}
	if adminErr.Field != "" {
		return []string{adminErr.Field + ": " + adminErr.Message}
	}
	return []string{adminErr.Message}
}
