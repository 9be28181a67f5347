package handler

import (
	"net/http"

	"sitesafety/internal/config"
	"sitesafety/internal/dto"
	"sitesafety/internal/logger"
	"sitesafety/internal/service"
	"sitesafety/internal/service/storage"
)

// AuditHandler handles POST /api/audit: a multipart "image" (jpg, jpeg, png) is
// processed once and answered with the original, the annotated copy and the count.
func AuditHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		file, header, err := formFile(w, r, "image", cfg.MaxUploadBytes())
		if err != nil {
			writeJSON(w, logger, uploadStatus(err), dto.ErrorResponse{Error: err.Error()})
			return
		}
		defer file.Close()

		if _, err := storage.CheckExtension(header.Filename, storage.KindImage); err != nil {
			writeError(w, logger, err)
			return
		}

		report, err := manager.AuditImage(file)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		original, _, _, err := service.EncodeImage(report.Original, cfg.DisplayWidth)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		annotated, _, _, err := service.EncodeImage(report.Result.Annotated, cfg.DisplayWidth)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, dto.AuditResponse{
			Outcome:    report.Outcome,
			Message:    report.Message,
			Count:      report.Result.Count,
			Detections: dto.FromDetections(report.Result.Detections),
			Original:   original,
			Annotated:  annotated,
		})
	}
}
