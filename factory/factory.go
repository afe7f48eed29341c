package factory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lychee-technology/formadmin"
	"github.com/lychee-technology/formadmin/internal"
	"go.uber.org/zap"
)

// Admin holds one CRUD controller per registered model, sharing a store and a
// file store.
type Admin struct {
	config      *formadmin.Config
	registry    formadmin.ModelRegistry
	db          formadmin.DB
	store       formadmin.Store
	files       formadmin.FileStore
	s3          *internal.S3FileStore
	controllers map[string]*internal.CRUDController
}

// NewAdminWithConfig creates an Admin with the provided configuration and database pool.
// This is the primary way for external projects to create an Admin instance.
//
// If registry is nil, model definitions are loaded from config.Admin.ModelDirectory.
//
// Usage:
//
//	config := formadmin.DefaultConfig()
//	admin, err := factory.NewAdminWithConfig(ctx, config, pool, nil)
//	if err != nil {
//	    // handle error
//	}
//	ctrl, err := admin.Controller("faq")
func NewAdminWithConfig(ctx context.Context, config *formadmin.Config, db formadmin.DB, registry formadmin.ModelRegistry) (*Admin, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if registry == nil {
		var err error
		registry, err = internal.NewFileModelRegistry(config.Admin.ModelDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to load model definitions: %w", err)
		}
	}

	db = internal.InstrumentDB(db)
	admin := &Admin{
		config:      config,
		registry:    registry,
		db:          db,
		store:       internal.NewPostgresStore(db, registry, config.Query.DefaultTimeout),
		controllers: make(map[string]*internal.CRUDController),
	}

	// Upload paths are relative to the web root on disk and to the bucket prefix on S3.
	uploadConfig := *config
	switch config.Upload.Backend {
	case formadmin.UploadBackendS3:
		s3Store, err := internal.NewS3FileStore(ctx, config.Upload.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 file store: %w", err)
		}
		admin.s3 = s3Store
		admin.files = s3Store
		uploadConfig.Admin.WebRoot = ""
	default:
		admin.files = internal.NewLocalFileStore()
	}

	for _, name := range registry.ListModels() {
		model, err := registry.GetModel(name)
		if err != nil {
			return nil, err
		}
		ctrl := internal.NewCRUDController(model, registry, admin.store, admin.files, &uploadConfig)
		if err := ctrl.CheckFields(); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		admin.controllers[strings.ToLower(name)] = ctrl
	}

	zap.S().Infow("admin initialized", "models", admin.Models(), "uploadBackend", config.Upload.Backend)
	return admin, nil
}

// Controller returns the controller of a model by its route name.
func (a *Admin) Controller(name string) (formadmin.Controller, error) {
	ctrl, ok := a.controllers[strings.ToLower(name)]
	if !ok {
		return nil, formadmin.NewModelNotFoundError(name)
	}
	return ctrl, nil
}

// Models returns the route names of all models, sorted.
func (a *Admin) Models() []string {
	names := make([]string, 0, len(a.controllers))
	for name := range a.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *Admin) Registry() formadmin.ModelRegistry {
	return a.registry
}

func (a *Admin) Config() *formadmin.Config {
	return a.config
}

// HealthCheck pings the database and, with the s3 backend, the bucket.
func (a *Admin) HealthCheck(ctx context.Context, timeout time.Duration) map[string]error {
	results := map[string]error{
		"postgres": internal.PingPool(ctx, a.db, timeout),
	}
	if a.s3 != nil {
		results["s3"] = a.s3.HealthCheck(ctx, timeout)
	}
	return results
}
