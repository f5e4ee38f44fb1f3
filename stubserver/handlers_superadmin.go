package stubserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SuperadminHandler serves the superadmin endpoints: admin account
// management and the per-admin panel.
type SuperadminHandler struct {
	store *Store
}

func NewSuperadminHandler(store *Store) *SuperadminHandler {
	return &SuperadminHandler{store: store}
}

func (h *SuperadminHandler) ListAdmins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"admins": h.store.ListAdmins()})
}

type createAdminRequest struct {
	Name     string `json:"nombre" binding:"required"`
	Username string `json:"usuario" binding:"required"`
	Password string `json:"contrasena" binding:"required"`
}

func (h *SuperadminHandler) CreateAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan datos: nombre, usuario o contraseña"})
		return
	}

	if _, err := h.store.CreateAdmin(req.Name, req.Username, req.Password, false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mensaje": "Admin creado"})
}

func (h *SuperadminHandler) DeleteAdmin(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return
	}

	if !h.store.DeleteAdmin(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Admin no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "Admin eliminado"})
}

// AdminPanel returns every table of one admin, fully expanded.
func (h *SuperadminHandler) AdminPanel(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return
	}

	admin, ok := h.store.GetAdmin(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Admin no encontrado"})
		return
	}

	tables := h.store.ListTables(id)
	details := make([]any, 0, len(tables))
	for _, t := range tables {
		if detail, ok := h.store.TableDetail(t.ID); ok {
			details = append(details, detail)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"admin_id": admin.ID,
		"nombre":   admin.Name,
		"tablas":   details,
	})
}
