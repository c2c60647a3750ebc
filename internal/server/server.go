// Package server exposes the record store over HTTP with gin.
//
// Routes, relative to the normalised API root:
//
//	GET    /{root}                 whole collection
//	POST   /{root}                 create, returns the new id
//	GET    /{root}/{id}            one record
//	PUT    /{root}/{id}            create or replace
//	DELETE /{root}/{id}            remove
//	GET    /{root}/{id}/{field}    one field of a record
//
// Errors are returned as {"message": ...}.
package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sverrirab/generic-rest/internal/schema"
	"github.com/sverrirab/generic-rest/internal/store"
)

// Options configures New.
type Options struct {
	// API is the URL prefix of the collection, e.g. "/api". Leading and
	// trailing slashes are ignored.
	API string

	Store  *store.Store
	Schema *schema.Schema

	// StrictPut rejects PUT on identifiers that do not exist yet.
	StrictPut bool

	// Debug puts gin in debug mode.
	Debug bool
}

// Server holds everything a handler needs. There is no package state.
type Server struct {
	store     *store.Store
	validator *schema.Validator
	strict    bool
	root      string
	engine    *gin.Engine
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		store:     opts.Store,
		validator: opts.Schema.Validator(),
		strict:    opts.StrictPut,
		root:      NormalizeRoot(opts.API),
		engine:    gin.New(),
	}

	s.engine.Use(requestID(), requestLogger(), recovery())
	s.engine.NoRoute(func(c *gin.Context) {
		abortWithMessage(c, http.StatusNotFound, msgNotFound)
	})
	s.engine.NoMethod(func(c *gin.Context) {
		abortWithMessage(c, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})
	s.engine.HandleMethodNotAllowed = true

	s.routes()
	return s
}

func (s *Server) routes() {
	collection := s.CollectionPath()
	item := strings.TrimSuffix(collection, "/") + "/:id"

	s.engine.GET(collection, s.listRecords)
	s.engine.POST(collection, s.createRecord)

	s.engine.GET(item, s.getRecord)
	s.engine.PUT(item, s.putRecord)
	s.engine.DELETE(item, s.deleteRecord)

	s.engine.GET(item+"/:field", s.getField)
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// CollectionPath returns the path of the collection resource.
func (s *Server) CollectionPath() string {
	return "/" + s.root
}

// NormalizeRoot strips every leading and trailing slash from api.
func NormalizeRoot(api string) string {
	return strings.Trim(api, "/")
}
