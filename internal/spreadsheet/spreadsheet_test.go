package spreadsheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, sheets map[string][][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			c, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, c, &row))
		}
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParse_RoomSheet(t *testing.T) {
	data := workbook(t, map[string][][]any{
		"ODA DETAYLARI": {
			{"oda no", " ŞANTİYESİ ", "Kapasite"},
			{"5", "Site A", 3},
			{nil, nil, nil},
			{"101", "Site B", "x"},
		},
	})

	wb, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, wb.HasRooms)
	assert.False(t, wb.HasWorkers)
	assert.Equal(t, []RoomRow{
		{Row: 2, Number: "5", Site: "Site A", Capacity: "3"},
		{Row: 4, Number: "101", Site: "Site B", Capacity: "x"},
	}, wb.Rooms)
}

func TestParse_WorkerSheet(t *testing.T) {
	data := workbook(t, map[string][][]any{
		WorkerSheet: {
			{"Sicil No", "Adı Soyadı", "Kaldığı Oda", "Çalıştığı Şantiye", "Odaya Giriş Tarihi"},
			{"W1", "Mehmet Ali Yılmaz", 101, "Site A", "15.03.2024"},
			{"W2", "Ahmet", "", "Site A", ""},
		},
	})

	wb, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, wb.HasWorkers)
	require.Len(t, wb.Workers, 2)
	assert.Equal(t, WorkerRow{Row: 2, RegistrationNumber: "W1", FullName: "Mehmet Ali Yılmaz", Room: "101", Site: "Site A", EntryDate: "15.03.2024"}, wb.Workers[0])
	assert.Equal(t, 3, wb.Workers[1].Row)
	assert.Empty(t, wb.Workers[1].Room)
}

func TestParse_MissingColumn(t *testing.T) {
	data := workbook(t, map[string][][]any{
		RoomSheet: {{"Oda No", "Kapasite"}, {"1", 2}},
	})
	_, err := Parse(bytes.NewReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), ColRoomSite)
}

func TestParse_NotAWorkbook(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte("not a zip")))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRowsFromRecords(t *testing.T) {
	rooms := RoomRowsFromRecords([]map[string]any{
		{"Oda No": "5", "Şantiyesi": "Site A", "Kapasite": float64(3)},
	})
	assert.Equal(t, []RoomRow{{Row: 2, Number: "5", Site: "Site A", Capacity: "3"}}, rooms)

	workers := WorkerRowsFromRecords([]map[string]any{
		{"sicil no": "W1", "ADI SOYADI": "Ayşe Kaya", "Kaldığı Oda": float64(101), "Çalıştığı Şantiye": "Site A"},
	})
	require.Len(t, workers, 1)
	assert.Equal(t, "W1", workers[0].RegistrationNumber)
	assert.Equal(t, "Ayşe Kaya", workers[0].FullName)
	assert.Equal(t, "101", workers[0].Room)
}

func TestParseCapacity(t *testing.T) {
	for in, want := range map[string]int{"3": 3, " 12 ": 12, "4.0": 4, "-1": -1} {
		got, ok := ParseCapacity(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "2.5"} {
		_, ok := ParseCapacity(in)
		assert.False(t, ok, in)
	}
}

func TestParseEntryDate(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ParseEntryDate("15.03.2024", fallback))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), ParseEntryDate("5.3.2024", fallback))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ParseEntryDate("45292", fallback.Add(time.Hour)))
	assert.Equal(t, fallback, ParseEntryDate("2024-03-15", fallback))
	assert.Equal(t, fallback, ParseEntryDate("", fallback))
	assert.Equal(t, fallback, ParseEntryDate("32.13.2024", fallback))

	// numeric text outside the date serial range is a typo, not a date
	for _, in := range []string{"2024", "1.5", "15/01/2024", "0", "-45292", "3000000"} {
		assert.Equal(t, fallback, ParseEntryDate(in, fallback), in)
	}
	assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), ParseEntryDate("25569", fallback))
}

func TestTemplate(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{RoomSheet, WorkerSheet}, f.GetSheetList())

	rows, err := f.GetRows(WorkerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{ColRegistration, ColFullName, ColWorkerRoom, ColWorkerSite, ColEntryDate}, rows[0])
}

func TestExportCamp_Reimportable(t *testing.T) {
	rooms := []*domain.Room{{ID: "r1", Number: "101", Project: "Site A", Capacity: 2, AvailableBeds: 1, Workers: []string{"w1"}}}
	workers := []*domain.Worker{{
		ID: "w1", Name: "Ali", Surname: "Demir", RegistrationNumber: "W1", Project: "Site A", RoomID: "r1",
		EntryDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}}

	data, err := ExportCamp(rooms, workers)
	require.NoError(t, err)

	wb, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []RoomRow{{Row: 2, Number: "101", Site: "Site A", Capacity: "2"}}, wb.Rooms)
	assert.Equal(t, []WorkerRow{{Row: 2, RegistrationNumber: "W1", FullName: "Ali Demir", Room: "101", Site: "Site A", EntryDate: "01.02.2024"}}, wb.Workers)
}
