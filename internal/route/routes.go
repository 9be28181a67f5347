package route

import (
	"net/http"
	"os"
	"path/filepath"

	"sitesafety/internal/config"
	"sitesafety/internal/handler"
	"sitesafety/internal/logger"
	"sitesafety/internal/middleware"
	"sitesafety/internal/service"
	"sitesafety/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as <staticDir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the dashboard page, static files, API endpoints and log
// endpoints, and wraps the mux with the request logging middleware.
func SetupRoutes(manager *service.Manager, hub *websocket.HubService, cfg *config.Config, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// API endpoints
	mux.HandleFunc("/api/status", handler.StatusHandler(manager, log))
	mux.HandleFunc("/api/settings", handler.SettingsHandler(manager, log))
	mux.HandleFunc("/api/audit", handler.AuditHandler(manager, cfg, log))
	mux.HandleFunc("/api/video", handler.StartVideoHandler(manager, cfg, log))
	mux.HandleFunc("/api/video/stop", handler.StopVideoHandler(manager, log))
	mux.HandleFunc("/api/live/activate", handler.ActivateLiveHandler(manager, log))
	mux.HandleFunc("/api/live/deactivate", handler.DeactivateLiveHandler(manager, log))
	mux.HandleFunc("/api/runs", handler.RunsHandler(manager, log))
	mux.HandleFunc("/api/runs/", handler.RunHandler(manager, log))
	mux.HandleFunc("/api/runs/clear", handler.ClearRunsHandler(manager, log))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, log))

	// Log endpoints
	for _, file := range logger.Files {
		level := file[:len(file)-len(filepath.Ext(file))]
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(log.Dir(), file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Automatic HTML handler mapping for example: /index -> /static/index.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDir))

	return middleware.RequestLogger(log)(mux)
}
