package stubserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Martin-d-abloh/proyecto-academia/config"
)

// AdminHandler serves the staff side of the API: login, table management
// and document review.
type AdminHandler struct {
	cfg   *config.StubConfig
	store *Store
	blobs BlobStore
}

func NewAdminHandler(cfg *config.StubConfig, store *Store, blobs BlobStore) *AdminHandler {
	return &AdminHandler{cfg: cfg, store: store, blobs: blobs}
}

type staffLoginRequest struct {
	Username string `json:"usuario" binding:"required"`
	Password string `json:"contrasena" binding:"required"`
}

// Login exchanges staff credentials for a signed token.
func (h *AdminHandler) Login(c *gin.Context) {
	var req staffLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan usuario o contraseña"})
		return
	}

	admin, ok := h.store.FindAdminByUsername(req.Username)
	if !ok || admin.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales incorrectas"})
		return
	}

	token, err := GenerateStaffToken(admin, h.cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo generar el token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         token,
		"es_superadmin": admin.IsSuperadmin,
		"usuario":       admin.Username,
	})
}

// ListTables returns the caller's tables; a superadmin may pass admin_id.
func (h *AdminHandler) ListTables(c *gin.Context) {
	adminID := currentAdminID(c)
	if param := c.Query("admin_id"); param != "" && isSuperadmin(c) {
		id, err := strconv.Atoi(param)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
			return
		}
		adminID = id
	}

	c.JSON(http.StatusOK, gin.H{"tablas": h.store.ListTables(adminID)})
}

type createTableRequest struct {
	Name string `json:"nombre" binding:"required"`
}

func (h *AdminHandler) CreateTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nombre requerido"})
		return
	}

	h.store.CreateTable(currentAdminID(c), req.Name)
	c.JSON(http.StatusCreated, gin.H{"mensaje": "Tabla creada"})
}

// requireTableOwner enforces the admin-scoping rule shared by every table
// route: the owner or a superadmin.
func (h *AdminHandler) requireTableOwner(c *gin.Context, tableID int) bool {
	owner, ok := h.store.TableOwner(tableID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tabla no encontrada"})
		return false
	}
	if owner != currentAdminID(c) && !isSuperadmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Acceso denegado"})
		return false
	}
	return true
}

func tableIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) GetTable(c *gin.Context) {
	tableID, ok := tableIDParam(c)
	if !ok || !h.requireTableOwner(c, tableID) {
		return
	}

	detail, _ := h.store.TableDetail(tableID)
	c.JSON(http.StatusOK, detail)
}

func (h *AdminHandler) DeleteTable(c *gin.Context) {
	tableID, ok := tableIDParam(c)
	if !ok || !h.requireTableOwner(c, tableID) {
		return
	}

	keys, _ := h.store.DeleteTable(tableID)
	h.releaseBlobs(c, keys)
	c.JSON(http.StatusOK, gin.H{"mensaje": "Tabla eliminada"})
}

type addDocumentRequest struct {
	Name string `json:"nombre" binding:"required"`
}

func (h *AdminHandler) AddDocument(c *gin.Context) {
	tableID, ok := tableIDParam(c)
	if !ok || !h.requireTableOwner(c, tableID) {
		return
	}

	var req addDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nombre del documento requerido"})
		return
	}

	if err := h.store.AddDocument(tableID, req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mensaje": "Documento creado"})
}

func (h *AdminHandler) RemoveDocument(c *gin.Context) {
	tableID, ok := tableIDParam(c)
	if !ok || !h.requireTableOwner(c, tableID) {
		return
	}

	docID, err := strconv.Atoi(c.Param("docId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return
	}

	keys, removed := h.store.RemoveDocument(tableID, docID)
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Documento no encontrado"})
		return
	}
	h.releaseBlobs(c, keys)
	c.JSON(http.StatusOK, gin.H{"mensaje": "Documento eliminado"})
}

type addStudentRequest struct {
	FirstName string `json:"nombre" binding:"required"`
	LastName  string `json:"apellidos" binding:"required"`
}

func (h *AdminHandler) AddStudent(c *gin.Context) {
	tableID, ok := tableIDParam(c)
	if !ok || !h.requireTableOwner(c, tableID) {
		return
	}

	var req addStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan datos del alumno"})
		return
	}

	student, err := h.store.AddStudent(tableID, req.FirstName, req.LastName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mensaje": "Alumno creado", "id": student.ID})
}

func (h *AdminHandler) RemoveStudent(c *gin.Context) {
	tableID, ok := tableIDParam(c)
	if !ok || !h.requireTableOwner(c, tableID) {
		return
	}

	studentID := c.Param("alumnoId")
	if _, err := uuid.Parse(studentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return
	}

	keys, removed := h.store.RemoveStudent(tableID, studentID)
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alumno no encontrado"})
		return
	}
	h.releaseBlobs(c, keys)
	c.JSON(http.StatusOK, gin.H{"mensaje": "Alumno eliminado"})
}

// DownloadDocument streams an upload to the reviewing admin.
func (h *AdminHandler) DownloadDocument(c *gin.Context) {
	h.serveDocument(c, false)
}

// ViewDocument serves an upload inline via a tokened URL.
func (h *AdminHandler) ViewDocument(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token requerido"})
		return
	}
	claims, err := parseToken(token, h.cfg.JWTSecret)
	if err != nil || claims.AdminID == 0 {
		denyAuth(c, "Token inválido")
		return
	}

	h.serveDocument(c, true)
}

func (h *AdminHandler) serveDocument(c *gin.Context, inline bool) {
	uploadID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return
	}

	upload, _, ok := h.store.GetUpload(uploadID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Documento no encontrado"})
		return
	}

	body, contentType, err := h.blobs.Get(c.Request.Context(), upload.ObjectKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Archivo no encontrado"})
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, upload.Filename))
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}

func (h *AdminHandler) releaseBlobs(c *gin.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := h.blobs.Delete(c.Request.Context(), key); err != nil {
			// Orphaned blobs are tolerable in a dev stub.
			continue
		}
	}
}
