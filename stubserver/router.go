package stubserver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Martin-d-abloh/proyecto-academia/config"
)

// NewRouter assembles the stub backend. The route table mirrors the real
// API exactly, so the client cannot tell them apart.
func NewRouter(cfg *config.StubConfig, store *Store, blobs BlobStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(RequestID())
	router.Use(Recovery())
	router.Use(RequestLogger())
	router.Use(RateLimit(300, time.Minute))

	adminHandler := NewAdminHandler(cfg, store, blobs)
	alumnoHandler := NewAlumnoHandler(cfg, store, blobs)
	superHandler := NewSuperadminHandler(store)

	// Public
	router.POST("/api/login_jwt", adminHandler.Login)
	router.POST("/api/login_alumno", alumnoHandler.Login)
	router.GET("/api/admin/documento/:id/ver", adminHandler.ViewDocument)
	router.GET("/api/alumno/ver/:docId", alumnoHandler.View)

	// Staff
	staff := router.Group("/api/admin")
	staff.Use(StaffAuth(cfg))
	{
		staff.GET("/tablas", adminHandler.ListTables)
		staff.POST("/tablas", adminHandler.CreateTable)
		staff.GET("/tabla/:id", adminHandler.GetTable)
		staff.DELETE("/tabla/:id", adminHandler.DeleteTable)
		staff.POST("/tabla/:id/documento", adminHandler.AddDocument)
		staff.DELETE("/tabla/:id/documento/:docId", adminHandler.RemoveDocument)
		staff.POST("/tabla/:id/alumnos", adminHandler.AddStudent)
		staff.DELETE("/tabla/:id/alumno/:alumnoId", adminHandler.RemoveStudent)
		staff.GET("/documento/:id", adminHandler.DownloadDocument)
	}

	// Student
	student := router.Group("/api/alumno")
	student.Use(StudentAuth(cfg))
	{
		student.GET("/:id", alumnoHandler.Info)
		student.GET("/:id/documentos", alumnoHandler.Documents)
		student.POST("/:id/subir", alumnoHandler.Upload)
		student.DELETE("/:id/documentos/:docId/eliminar", alumnoHandler.Delete)
	}

	// Superadmin
	super := router.Group("/api/superadmin")
	super.Use(SuperadminAuth(cfg))
	{
		super.GET("/admins", superHandler.ListAdmins)
		super.POST("/admins", superHandler.CreateAdmin)
		super.DELETE("/admins/:id", superHandler.DeleteAdmin)
		super.GET("/panel_admin/:id", superHandler.AdminPanel)
	}

	return router
}

// Seed creates the configured staff accounts.
func Seed(cfg *config.StubConfig, store *Store) error {
	if _, err := store.CreateAdmin(cfg.Superadmin.Name, cfg.Superadmin.Username, cfg.Superadmin.Password, true); err != nil {
		return fmt.Errorf("failed to seed superadmin: %w", err)
	}
	for _, seed := range cfg.Admins {
		if _, err := store.CreateAdmin(seed.Name, seed.Username, seed.Password, false); err != nil {
			return fmt.Errorf("failed to seed admin %q: %w", seed.Username, err)
		}
		slog.Info("seeded admin account", "usuario", seed.Username)
	}
	return nil
}
