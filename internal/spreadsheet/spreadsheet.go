package spreadsheet

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// 工作表与列名（与现场使用的 Excel 模板保持一致）
const (
	RoomSheet   = "Oda Detayları"
	WorkerSheet = "İşçi Listesi"

	ColRoomNo   = "Oda No"
	ColRoomSite = "Şantiyesi"
	ColCapacity = "Kapasite"

	ColRegistration = "Sicil No"
	ColFullName     = "Adı Soyadı"
	ColWorkerRoom   = "Kaldığı Oda"
	ColWorkerSite   = "Çalıştığı Şantiye"
	ColEntryDate    = "Odaya Giriş Tarihi"

	// export-only columns, ignored on import
	ColCompany       = "Şirket"
	ColAvailableBeds = "Boş Yatak"
)

var (
	roomColumns   = []string{ColRoomNo, ColRoomSite, ColCapacity}
	workerColumns = []string{ColRegistration, ColFullName, ColWorkerRoom, ColWorkerSite, ColEntryDate}
	// 必填列；缺失时整个工作表无法导入
	workerRequired = []string{ColRegistration, ColFullName, ColWorkerSite}
)

// EntryDateLayout is the DD.MM.YYYY format used in the worker sheet.
const EntryDateLayout = "02.01.2006"

// RoomRow is one data row of the room sheet, as raw cell text.
type RoomRow struct {
	Row      int
	Number   string
	Site     string
	Capacity string
}

// WorkerRow is one data row of the worker sheet, as raw cell text.
type WorkerRow struct {
	Row                int
	RegistrationNumber string
	FullName           string
	Room               string
	Site               string
	EntryDate          string
}

// Workbook holds the rows of whichever import sheets were present.
type Workbook struct {
	HasRooms   bool
	HasWorkers bool
	Rooms      []RoomRow
	Workers    []WorkerRow
}

var lowerTR = cases.Lower(language.Turkish)

// normalize folds case with Turkish rules and collapses whitespace so that
// "ODA  NO", "oda no" and "Oda No" match.
func normalize(s string) string {
	return strings.Join(strings.Fields(lowerTR.String(s)), " ")
}

// Parse reads the import sheets from an xlsx stream. Sheet and column names are
// matched case- and whitespace-insensitively; blank rows are skipped and row
// numbers are the sheet's own (header = row 1).
func Parse(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.Validation("failed to open workbook: %v", err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		switch normalize(name) {
		case normalize(RoomSheet):
			rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
			if err != nil {
				return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
			}
			if wb.Rooms, err = roomRows(rows); err != nil {
				return nil, err
			}
			wb.HasRooms = true
		case normalize(WorkerSheet):
			rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
			if err != nil {
				return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
			}
			if wb.Workers, err = workerRows(rows); err != nil {
				return nil, err
			}
			wb.HasWorkers = true
		}
	}
	return wb, nil
}

// headerIndex maps normalized column names to their index in the header row.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if k := normalize(h); k != "" {
			if _, dup := idx[k]; !dup {
				idx[k] = i
			}
		}
	}
	return idx
}

func requireColumns(sheet string, idx map[string]int, cols []string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := idx[normalize(c)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return domain.Validation("sheet %s is missing columns: %s", sheet, strings.Join(missing, ", "))
	}
	return nil
}

func cell(row []string, idx map[string]int, col string) string {
	i, ok := idx[normalize(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func roomRows(rows [][]string) ([]RoomRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	idx := headerIndex(rows[0])
	if err := requireColumns(RoomSheet, idx, roomColumns); err != nil {
		return nil, err
	}
	out := make([]RoomRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, RoomRow{
			Row:      i + 2,
			Number:   cell(row, idx, ColRoomNo),
			Site:     cell(row, idx, ColRoomSite),
			Capacity: cell(row, idx, ColCapacity),
		})
	}
	return out, nil
}

func workerRows(rows [][]string) ([]WorkerRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	idx := headerIndex(rows[0])
	if err := requireColumns(WorkerSheet, idx, workerRequired); err != nil {
		return nil, err
	}
	out := make([]WorkerRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, WorkerRow{
			Row:                i + 2,
			RegistrationNumber: cell(row, idx, ColRegistration),
			FullName:           cell(row, idx, ColFullName),
			Room:               cell(row, idx, ColWorkerRoom),
			Site:               cell(row, idx, ColWorkerSite),
			EntryDate:          cell(row, idx, ColEntryDate),
		})
	}
	return out, nil
}

// RoomRowsFromRecords converts JSON records keyed by the sheet column names.
// Record i gets row number i+2, as if it followed a header row.
func RoomRowsFromRecords(records []map[string]any) []RoomRow {
	out := make([]RoomRow, 0, len(records))
	for i, rec := range records {
		n := normalizeRecord(rec)
		out = append(out, RoomRow{
			Row:      i + 2,
			Number:   n[normalize(ColRoomNo)],
			Site:     n[normalize(ColRoomSite)],
			Capacity: n[normalize(ColCapacity)],
		})
	}
	return out
}

func WorkerRowsFromRecords(records []map[string]any) []WorkerRow {
	out := make([]WorkerRow, 0, len(records))
	for i, rec := range records {
		n := normalizeRecord(rec)
		out = append(out, WorkerRow{
			Row:                i + 2,
			RegistrationNumber: n[normalize(ColRegistration)],
			FullName:           n[normalize(ColFullName)],
			Room:               n[normalize(ColWorkerRoom)],
			Site:               n[normalize(ColWorkerSite)],
			EntryDate:          n[normalize(ColEntryDate)],
		})
	}
	return out
}

func normalizeRecord(rec map[string]any) map[string]string {
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		out[normalize(k)] = strings.TrimSpace(stringify(v))
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// ParseCapacity accepts whole numbers, including "3.0" as produced by some
// spreadsheet exports.
func ParseCapacity(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// Excel serials for 1970-01-01 and 9999-12-31. Numbers outside this range
// ("2024", "1.5") are typos, not dates.
const (
	minDateSerial = 25569
	maxDateSerial = 2958465
)

// ParseEntryDate parses DD.MM.YYYY (single-digit day and month allowed) or an
// Excel serial date from a raw date cell. Anything else yields fallback.
func ParseEntryDate(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	if t, err := time.Parse("2.1.2006", s); err == nil {
		return t
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minDateSerial && serial <= maxDateSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t
		}
	}
	return fallback
}

// Template returns an empty import workbook with both sheets.
func Template() ([]byte, error) {
	return build([]sheet{
		{name: RoomSheet, headers: roomColumns, widths: []float64{12, 24, 12}},
		{name: WorkerSheet, headers: workerColumns, widths: []float64{14, 28, 14, 24, 20}},
	})
}

// ExportCamp writes rooms and workers in the import layout plus a few
// read-only columns, so an export can be re-imported into another camp.
func ExportCamp(rooms []*domain.Room, workers []*domain.Worker) ([]byte, error) {
	numbers := make(map[string]string, len(rooms))
	roomData := make([][]any, 0, len(rooms))
	for _, r := range rooms {
		numbers[r.ID] = r.Number
		roomData = append(roomData, []any{r.Number, r.Project, r.Capacity, r.Company, r.AvailableBeds})
	}
	workerData := make([][]any, 0, len(workers))
	for _, w := range workers {
		entry := ""
		if !w.EntryDate.IsZero() {
			entry = w.EntryDate.Format(EntryDateLayout)
		}
		workerData = append(workerData, []any{
			w.RegistrationNumber, w.FullName(), numbers[w.RoomID], w.Project, entry, w.Company,
		})
	}
	return build([]sheet{
		{
			name:    RoomSheet,
			headers: append(append([]string{}, roomColumns...), ColCompany, ColAvailableBeds),
			widths:  []float64{12, 24, 12, 24, 12},
			rows:    roomData,
		},
		{
			name:    WorkerSheet,
			headers: append(append([]string{}, workerColumns...), ColCompany),
			widths:  []float64{14, 28, 14, 24, 20, 24},
			rows:    workerData,
		},
	})
}

type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
}

func build(sheets []sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}
		if err := writeSheet(f, s, headerStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	for col, h := range s.headers {
		c, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(s.name, c, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", c, err)
		}
		if err := f.SetCellStyle(s.name, c, c, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		if col < len(s.widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return err
			}
			if err := f.SetColWidth(s.name, name, name, s.widths[col]); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}
	for r, row := range s.rows {
		c, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, c, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}
	// 冻结表头
	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
