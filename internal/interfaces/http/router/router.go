// Package router lays the HTTP handlers out on a gin engine.
package router

import (
	"path"

	"github.com/gin-gonic/gin"
)

// APIPrefix is the mount point of every resource group.
const APIPrefix = "/api/v1"

// Route is one endpoint relative to its group prefix.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Group is a resource prefix with its routes. Middleware covers the group
// and everything nested in it but nothing mounted beside it.
type Group struct {
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
	Nested     []Group
}

// Mount registers g and its nested groups on parent.
func (g Group) Mount(parent gin.IRouter) {
	rg := parent.Group(g.Prefix, g.Middleware...)
	for _, r := range g.Routes {
		rg.Handle(r.Method, r.Path, r.Handler)
	}
	for _, n := range g.Nested {
		n.Mount(rg)
	}
}

// Endpoint names a served method and path.
type Endpoint struct {
	Method string
	Path   string
}

// Endpoints flattens g, its own routes first, with paths relative to the
// group's parent.
func (g Group) Endpoints() []Endpoint {
	var out []Endpoint
	for _, r := range g.Routes {
		out = append(out, Endpoint{Method: r.Method, Path: join(g.Prefix, r.Path)})
	}
	for _, n := range g.Nested {
		for _, e := range n.Endpoints() {
			out = append(out, Endpoint{Method: e.Method, Path: join(g.Prefix, e.Path)})
		}
	}
	return out
}

func join(prefix, rel string) string {
	if rel == "" {
		return prefix
	}
	return path.Join(prefix, rel)
}
