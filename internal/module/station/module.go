package station

import "github.com/gin-gonic/gin"

// StationModule implements the app.Module interface for price records.
type StationModule struct {
	handler     *StationHandler
	pageHandler *StationPageHandler
}

// NewModule creates a new StationModule with the given handlers.
// Panics if h or ph is nil.
func NewModule(h *StationHandler, ph *StationPageHandler) *StationModule {
	if h == nil {
		panic("station.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("station.NewModule: pageHandler must not be nil")
	}
	return &StationModule{handler: h, pageHandler: ph}
}

// RegisterRoutes registers station API and page routes.
func (m *StationModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	api.GET("/stations", m.handler.List)
	api.GET("/stations/stats", m.handler.Stats)
	api.GET("/stations/export", m.handler.Export)
	api.POST("/stations/import", m.handler.Import)

	pages.GET("/stations", m.pageHandler.ListPage)
	pages.GET("/stations/upload", m.pageHandler.UploadPage)
	pages.POST("/stations/upload", m.pageHandler.Upload)
	pages.GET("/stations/stats", m.pageHandler.StatsPage)
}
