package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paymentmanager/backend/internal/interfaces/http/handler"
)

// Handlers bundles what Setup mounts; nil entries are skipped.
type Handlers struct {
	Payment   *handler.PaymentHandler
	Import    *handler.ImportHandler
	Geography *handler.GeographyHandler
	Draft     *handler.DraftHandler
	System    *handler.SystemHandler
}

func paymentRoutes(h *handler.PaymentHandler) Group {
	return Group{Prefix: "/payments", Routes: []Route{
		{http.MethodGet, "", h.List},
		{http.MethodPost, "", h.Create},
		{http.MethodGet, "/evidence/:fileId", h.DownloadEvidence},
		{http.MethodGet, "/:id", h.Get},
		{http.MethodPatch, "/:id", h.Update},
		{http.MethodDelete, "/:id", h.Delete},
		{http.MethodPost, "/:id/evidence", h.UploadEvidence},
	}}
}

func importRoutes(h *handler.ImportHandler) Group {
	return Group{Prefix: "/upload", Routes: []Route{
		{http.MethodPost, "/payments", h.ImportPayments},
	}}
}

// geographyRoutes runs middleware, usually the rate limiter, in front of
// every lookup.
func geographyRoutes(h *handler.GeographyHandler, middleware []gin.HandlerFunc) Group {
	return Group{
		Prefix:     "/geo",
		Middleware: middleware,
		Routes:     []Route{{http.MethodGet, "/countries", h.ListCountries}},
		Nested: []Group{{Prefix: "/countries/:country", Routes: []Route{
			{http.MethodGet, "/states", h.ListStates},
			{http.MethodGet, "/cities", h.ListCities},
			{http.MethodGet, "/currency", h.GetCurrency},
		}}},
	}
}

func draftRoutes(h *handler.DraftHandler) Group {
	return Group{Prefix: "/drafts", Routes: []Route{
		{http.MethodPost, "", h.Create},
		{http.MethodGet, "/:draftId", h.Get},
		{http.MethodPatch, "/:draftId", h.ChangeField},
		{http.MethodDelete, "/:draftId", h.Delete},
		{http.MethodPost, "/:draftId/submit", h.Submit},
		{http.MethodPost, "/:draftId/reset", h.Reset},
	}}
}

func systemRoutes(h *handler.SystemHandler) Group {
	return Group{Prefix: "/system", Routes: []Route{
		{http.MethodGet, "/info", h.GetSystemInfo},
		{http.MethodGet, "/health", h.Health},
	}}
}

// Setup mounts the configured handlers under APIPrefix, plus a root /health
// for health checks, and returns the groups it mounted. geoMiddleware applies to
// /geo only.
func Setup(engine *gin.Engine, h Handlers, geoMiddleware ...gin.HandlerFunc) []Group {
	var groups []Group
	if h.System != nil {
		engine.GET("/health", h.System.Health)
		groups = append(groups, systemRoutes(h.System))
	}
	if h.Payment != nil {
		groups = append(groups, paymentRoutes(h.Payment))
	}
	if h.Import != nil {
		groups = append(groups, importRoutes(h.Import))
	}
	if h.Geography != nil {
		groups = append(groups, geographyRoutes(h.Geography, geoMiddleware))
	}
	if h.Draft != nil {
		groups = append(groups, draftRoutes(h.Draft))
	}

	api := engine.Group(APIPrefix)
	for _, g := range groups {
		g.Mount(api)
	}
	return groups
}
