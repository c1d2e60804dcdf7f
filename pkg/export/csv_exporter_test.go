package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	data := Dataset{
		Headers: []string{"row", "student_name", "certificate_code"},
		Rows: []map[string]string{
			{"row": "1", "student_name": "Ana Pérez", "certificate_code": "PREN1ABCDE2345"},
			{"row": "2", "student_name": "Luis Gómez", "certificate_code": "DAEN2FGHIJ6789"},
		},
		Summary: [][2]string{{"successful", "2"}},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)

	reader := csv.NewReader(strings.NewReader(string(out)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"row", "student_name", "certificate_code"}, records[0])
	assert.Equal(t, "Ana Pérez", records[1][1])
	assert.Equal(t, []string{"successful", "2"}, records[len(records)-1])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}
