package stubserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Martin-d-abloh/proyecto-academia/config"
)

// AlumnoHandler serves the student side of the API: login, the document
// list, uploads and deletions.
type AlumnoHandler struct {
	cfg   *config.StubConfig
	store *Store
	blobs BlobStore
}

func NewAlumnoHandler(cfg *config.StubConfig, store *Store, blobs BlobStore) *AlumnoHandler {
	return &AlumnoHandler{cfg: cfg, store: store, blobs: blobs}
}

type studentLoginRequest struct {
	Credential string `json:"credencial" binding:"required"`
}

// Login resolves a "nombre apellidos" credential to a student token.
func (h *AlumnoHandler) Login(c *gin.Context) {
	var req studentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Credencial requerida"})
		return
	}

	parts := strings.Fields(req.Credential)
	if len(parts) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Introduce nombre y apellidos"})
		return
	}

	hash := CredentialHash(parts[0], strings.Join(parts[1:], " "))
	student, ok := h.store.FindStudentByCredential(hash)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales incorrectas"})
		return
	}

	token, err := GenerateStudentToken(student.ID, h.cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo generar el token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "alumno_id": student.ID})
}

// Info returns the student's own record.
func (h *AlumnoHandler) Info(c *gin.Context) {
	student, tableID, ok := h.store.GetStudent(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alumno no encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        student.ID,
		"nombre":    student.FirstName,
		"apellidos": student.LastName,
		"tabla_id":  tableID,
	})
}

// Documents lists every requirement of the student's table with the
// state of the student's own upload.
func (h *AlumnoHandler) Documents(c *gin.Context) {
	docs, ok := h.store.RequiredDocuments(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alumno no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documentos": docs})
}

// Upload accepts a multipart submission (archivo + nombre_documento) and
// replaces any prior upload for the same requirement.
func (h *AlumnoHandler) Upload(c *gin.Context) {
	studentID := c.Param("id")

	file, header, err := c.Request.FormFile("archivo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan datos"})
		return
	}
	defer file.Close()

	documentName := c.PostForm("nombre_documento")
	if header.Filename == "" || documentName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan datos"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectKey := fmt.Sprintf("%s/%s/%s", studentID, documentName, header.Filename)
	if err := h.blobs.Put(c.Request.Context(), objectKey, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno al subir"})
		return
	}

	upload, replacedKey, err := h.store.SaveUpload(studentID, documentName, header.Filename, contentType, objectKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if replacedKey != "" && replacedKey != objectKey {
		h.blobs.Delete(c.Request.Context(), replacedKey)
	}

	c.JSON(http.StatusOK, gin.H{
		"mensaje": "Documento subido correctamente",
		"documento": gin.H{
			"id":     upload.ID,
			"nombre": upload.DocumentName,
			"estado": upload.State,
		},
	})
}

// Delete removes one of the student's own uploads.
func (h *AlumnoHandler) Delete(c *gin.Context) {
	studentID := c.Param("id")
	uploadID, err := strconv.Atoi(c.Param("docId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return
	}

	upload, _, ok := h.store.GetUpload(uploadID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Documento no encontrado"})
		return
	}
	if upload.StudentID != studentID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Este documento no te pertenece"})
		return
	}

	removed, _ := h.store.DeleteUpload(uploadID)
	if removed != nil && removed.ObjectKey != "" {
		h.blobs.Delete(c.Request.Context(), removed.ObjectKey)
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "Documento eliminado"})
}

// View serves the student's own upload inline via a tokened URL.
func (h *AlumnoHandler) View(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token requerido"})
		return
	}
	claims, err := parseToken(token, h.cfg.JWTSecret)
	if err != nil || claims.StudentID == "" {
		denyAuth(c, "Token inválido")
		return
	}

	uploadID, err := strconv.Atoi(c.Param("docId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return
	}

	upload, _, ok := h.store.GetUpload(uploadID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Documento no encontrado"})
		return
	}
	if upload.StudentID != claims.StudentID {
		c.JSON(http.StatusForbidden, gin.H{"error": "No tienes permiso para ver este documento"})
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
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", upload.Filename))
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
