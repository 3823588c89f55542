package httpapi

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/directory"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/service"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/spreadsheet"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportHandler Excel 导入 / 模板 / 导出
// 导入支持 multipart（字段 file + campId）或 JSON {campId, records:[{列名: 值}]}
type ImportHandler struct {
	imports   service.ImportService
	occupancy service.OccupancyService
	maxBytes  int64
	logger    *zap.Logger
}

func NewImportHandler(imports service.ImportService, occupancy service.OccupancyService, maxBytes int64, logger *zap.Logger) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &ImportHandler{imports: imports, occupancy: occupancy, maxBytes: maxBytes, logger: logger}
}

type importPayload struct {
	campID   string
	workbook *spreadsheet.Workbook
	records  []map[string]any
	isSheet  bool
}

// readImport reads either an uploaded workbook or a JSON record list.
func (h *ImportHandler) readImport(w http.ResponseWriter, r *http.Request) (*importPayload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			if statusOf(err) == http.StatusRequestEntityTooLarge {
				return nil, err
			}
			return nil, domain.Validation("invalid multipart form: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, domain.Validation("file is required")
		}
		defer file.Close()
		wb, err := spreadsheet.Parse(file)
		if err != nil {
			return nil, err
		}
		campID := r.FormValue("campId")
		if campID == "" {
			campID = r.URL.Query().Get("campId")
		}
		return &importPayload{campID: campID, workbook: wb, isSheet: true}, nil
	}

	var body struct {
		CampID  string           `json:"campId"`
		Records []map[string]any `json:"records"`
	}
	if err := readBodyJSON(r, h.maxBytes, &body); err != nil {
		return nil, err
	}
	if body.CampID == "" {
		body.CampID = r.URL.Query().Get("campId")
	}
	return &importPayload{campID: body.CampID, records: body.Records}, nil
}

func importMessage(res *domain.ImportResult) string {
	return fmt.Sprintf("%d rows imported, %d failed", res.Success, res.Failed)
}

func (h *ImportHandler) ImportRooms(w http.ResponseWriter, r *http.Request) {
	p, err := h.readImport(w, r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	rows := spreadsheet.RoomRowsFromRecords(p.records)
	if p.isSheet {
		if !p.workbook.HasRooms {
			writeError(w, h.logger, r, domain.Validation("sheet %q not found", spreadsheet.RoomSheet))
			return
		}
		rows = p.workbook.Rooms
	}
	res, err := h.imports.ImportRooms(r.Context(), service.ImportRoomsRequest{
		Actor:  directory.FromContext(r.Context()),
		CampID: p.campID,
		Rows:   rows,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"message": importMessage(res), "results": res}))
}

func (h *ImportHandler) ImportWorkers(w http.ResponseWriter, r *http.Request) {
	p, err := h.readImport(w, r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	rows := spreadsheet.WorkerRowsFromRecords(p.records)
	if p.isSheet {
		if !p.workbook.HasWorkers {
			writeError(w, h.logger, r, domain.Validation("sheet %q not found", spreadsheet.WorkerSheet))
			return
		}
		rows = p.workbook.Workers
	}
	res, err := h.imports.ImportWorkers(r.Context(), service.ImportWorkersRequest{
		Actor:  directory.FromContext(r.Context()),
		CampID: p.campID,
		Rows:   rows,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"message": importMessage(res), "results": res}))
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ImportHandler) Template(w http.ResponseWriter, r *http.Request) {
	data, err := spreadsheet.Template()
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeXLSX(w, "kamp-import-template.xlsx", data)
}

// Export 导出营地的房间与工人（与导入模板同一格式）
func (h *ImportHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor := directory.FromContext(r.Context())
	campID := r.PathValue("id")
	rooms, err := h.occupancy.ListRooms(r.Context(), service.ListRoomsRequest{Actor: actor, CampID: campID})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	workers, err := h.occupancy.ListWorkers(r.Context(), service.ListWorkersRequest{Actor: actor, CampID: campID})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	data, err := spreadsheet.ExportCamp(rooms.Items, workers.Items)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	name := fmt.Sprintf("kamp-%s-%s.xlsx", strings.ReplaceAll(campID, "/", ""), time.Now().Format("20060102"))
	writeXLSX(w, name, data)
}
