package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eantrace/eantrace/models"
)

func exportRows() []models.ExportRow {
	return []models.ExportRow{
		{Code: "1234567890128", URL: "http://a.test", ProductName: "Widget", DateClue: "2015", Assessment: "historical", Snippet: "descatalogado, en 2015"},
		{Code: "1234567890128", URL: "http://b.test", ProductName: "Widget", DateClue: "unidentified", Assessment: "current", Snippet: "en stock"},
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	if err := w.Write(exportRows()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header plus 2 rows", len(records))
	}
	wantHeader := "code,url,product_name,date_clue,assessment,snippet"
	if got := strings.Join(records[0], ","); got != wantHeader {
		t.Fatalf("header = %q, want %q", got, wantHeader)
	}
	if records[1][5] != "descatalogado, en 2015" {
		t.Fatalf("snippet with comma mangled: %q", records[1][5])
	}
}

func TestJSONWriterWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}
	if err := w.Write(exportRows()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var rows []models.ExportRow
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row models.ExportRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("line %d is not valid json: %v", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Assessment != "historical" || rows[1].Assessment != "current" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestDualWriterWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	jsonPath := filepath.Join(dir, "out.json")

	w, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}
	if err := w.Write(exportRows()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
}

func TestWriterCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestDefaultExportPath(t *testing.T) {
	path := DefaultExportPath("1234567890128")
	if !strings.HasPrefix(path, "ean_1234567890128_results_") {
		t.Fatalf("path = %q", path)
	}
	if !strings.HasSuffix(path, ".csv") {
		t.Fatalf("path = %q", path)
	}
}
