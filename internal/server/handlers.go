package server

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sverrirab/generic-rest/internal/record"
	"github.com/sverrirab/generic-rest/internal/schema"
)

// maxBodyBytes caps request bodies. Records are a handful of scalars.
const maxBodyBytes = 1 << 20

func (s *Server) listRecords(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.All())
}

func (s *Server) createRecord(c *gin.Context) {
	// The body is validated before the token is checked, so a request that
	// is both malformed and unauthorized gets 400, not 401.
	rec, err := s.bind(c)
	if err != nil {
		handleError(c, err)
		return
	}

	id, err := s.store.Create(c.Request.Context(), c.GetHeader("Authorization"), rec)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Location", s.itemPath(id))
	c.JSON(http.StatusCreated, id)
}

func (s *Server) getRecord(c *gin.Context) {
	rec, digest, err := s.store.GetWithDigest(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	etag := `"` + digest + `"`
	c.Header("ETag", etag)
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// etagMatches reports whether an If-None-Match header value matches etag.
// The header may list several tags, use "*", or carry weak W/ tags; the
// comparison is weak as RFC 9110 requires for If-None-Match.
func etagMatches(header, etag string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}

func (s *Server) putRecord(c *gin.Context) {
	id := c.Param("id")

	rec, err := s.bind(c)
	if err != nil {
		handleError(c, err)
		return
	}

	if err := s.store.Update(c.Request.Context(), c.GetHeader("Authorization"), id, rec, s.strict); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) deleteRecord(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.GetHeader("Authorization"), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getField(c *gin.Context) {
	val, err := s.store.GetField(c.Param("id"), c.Param("field"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, val)
}

// bind validates the request input against the schema. JSON bodies are
// used when present; otherwise form and query values are read.
func (s *Server) bind(c *gin.Context) (record.Record, error) {
	req := c.Request
	req.Body = http.MaxBytesReader(c.Writer, req.Body, maxBodyBytes)

	switch mediaType(req.Header.Get("Content-Type")) {
	case "application/x-www-form-urlencoded":
		if err := req.ParseForm(); err != nil {
			return nil, malformed("malformed form body")
		}
		return s.validator.ValidateForm(req.Form)
	case "multipart/form-data":
		if err := req.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, malformed("malformed multipart body")
		}
		return s.validator.ValidateForm(req.Form)
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, malformed("request body could not be read")
	}
	if len(body) == 0 && len(req.URL.Query()) > 0 {
		return s.validator.ValidateForm(req.URL.Query())
	}
	return s.validator.ValidateJSON(body)
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}

func malformed(message string) schema.ValidationErrors {
	return schema.ValidationErrors{{Message: message, Code: schema.ErrNotAnObject}}
}

func (s *Server) itemPath(id string) string {
	if s.root == "" {
		return "/" + id
	}
	return "/" + s.root + "/" + id
}
