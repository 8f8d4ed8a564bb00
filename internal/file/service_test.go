package file

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docxBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		"word/document.xml":   `<?xml version="1.0"?><document/>`,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestCheckType(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

	tests := []struct {
		name     string
		declared string
		data     []byte
		wantErr  bool
	}{
		{"pdf", mimePDF, pdf, false},
		{"docx", mimeDOCX, docxBytes(t), false},
		{"text claiming pdf", mimePDF, []byte("just some notes"), true},
		{"pdf claiming docx", mimeDOCX, pdf, true},
		{"image type", "image/png", pdf, true},
		{"no declared type", "", pdf, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkType(tt.declared, tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidType)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, mimePDF, ContentType("cv.PDF"))
	assert.Equal(t, mimeDOC, ContentType("letter.doc"))
	assert.Equal(t, mimeDOCX, ContentType("essay.final.docx"))
	assert.Equal(t, "application/octet-stream", ContentType("notes.txt"))
	assert.Equal(t, "application/octet-stream", ContentType("README"))
}
