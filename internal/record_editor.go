package internal

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/lychee-technology/formadmin"
	"go.uber.org/zap"
)

// RemoveFlagPrefix prefixes the form key that asks for an upload field to be cleared.
const RemoveFlagPrefix = "remove_image_"

// RecordEditor applies a form submission to a record and persists it.
type RecordEditor struct {
	store   formadmin.Store
	files   formadmin.FileStore
	webRoot string
}

func NewRecordEditor(store formadmin.Store, files formadmin.FileStore, webRoot string) *RecordEditor {
	return &RecordEditor{store: store, files: files, webRoot: webRoot}
}

// Submit binds the accepted form values, processes upload fields and saves.
// On failure the returned entity keeps the submitted values for re-display.
func (e *RecordEditor) Submit(ctx context.Context, model *formadmin.Model, entity *formadmin.Entity, req *formadmin.Request, fields *formadmin.FieldSet) (*formadmin.Entity, error) {
	isUpload := func(column string) bool {
		d, ok := fields.Get(column)
		return ok && d.Type.IsUpload()
	}
	for name, value := range model.FilterValues(req.Form, isUpload) {
		entity.Set(name, value)
	}

	for _, d := range fields.All() {
		if !d.Type.IsUpload() || d.IsRelated() {
			continue
		}
		if req.HasForm(RemoveFlagPrefix + d.Key) {
			e.removeExisting(ctx, entity, d)
		}
		upload, ok := req.Files[d.Key]
		if !ok || upload == nil || !upload.IsPresent() {
			continue
		}
		e.removeExisting(ctx, entity, d)
		name := upload.GenerateStoredName(req.UserID)
		if err := upload.MoveTo(ctx, e.files, e.resolvePath(d, name)); err != nil {
			return entity, formadmin.NewUploadError(model.Name, d.Key, err)
		}
		entity.Set(d.Key, name)
	}

	if err := e.store.Save(ctx, model, entity); err != nil {
		return entity, err
	}
	if !entity.Persisted() {
		return entity, formadmin.NewValidationError(model.Name, "record was not saved")
	}

	zap.S().Infow("record saved", "model", model.Name, "id", entity.ID, "user", req.UserID)
	return entity, nil
}

// removeExisting deletes the file currently referenced by the field, if the
// record is persisted, and clears the field. Failures are logged and ignored.
func (e *RecordEditor) removeExisting(ctx context.Context, entity *formadmin.Entity, d formadmin.Descriptor) {
	current, _ := entity.Get(d.Key)
	name := stringify(current)
	if entity.Persisted() && name != "" {
		if !isPlainFileName(name) {
			zap.S().Warnw("refusing to remove stored file with a path component", "model", entity.Model, "field", d.Key, "value", name)
		} else if err := e.files.Remove(ctx, e.resolvePath(d, name)); err != nil {
			zap.S().Warnw("failed to remove stored file", "model", entity.Model, "field", d.Key, "error", err)
		}
	}
	entity.Set(d.Key, "")
}

// resolvePath places a file name under the descriptor directory, either as an
// absolute path or relative to the web root.
func (e *RecordEditor) resolvePath(d formadmin.Descriptor, name string) string {
	if d.AbsolutePath {
		return filepath.Join(d.DirPath, name)
	}
	return filepath.Join(e.webRoot, strings.TrimLeft(d.DirPath, "/"), name)
}

func isPlainFileName(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
