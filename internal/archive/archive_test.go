package archive_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/tax-ledger/internal/archive"
)

func buildZip(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadZip(t *testing.T) {
	files := map[string]string{
		"facturas/":           "",
		"facturas/fv1.xml":    "<Invoice><ID>1</ID></Invoice>",
		"facturas/FV2.XML":    "<Invoice><ID>2</ID></Invoice>",
		"facturas/readme.txt": "ignore me",
		"__MACOSX/fv1.xml":    "junk",
		"facturas/._fv1.xml":  "junk",
	}
	order := []string{"facturas/", "facturas/fv1.xml", "facturas/readme.txt", "__MACOSX/fv1.xml", "facturas/._fv1.xml", "facturas/FV2.XML"}
	data := buildZip(t, files, order)

	entries, err := archive.ReadZip("enero.zip", data, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "enero.zip", entries[0].Archive)
	assert.Equal(t, "facturas/fv1.xml", entries[0].Name)
	assert.Equal(t, "<Invoice><ID>1</ID></Invoice>", string(entries[0].Data))
	assert.NoError(t, entries[0].Err)
	assert.Equal(t, "facturas/FV2.XML", entries[1].Name)
}

func TestReadZip_EntryLimit(t *testing.T) {
	data := buildZip(t, map[string]string{
		"small.xml": "<a/>",
		"large.xml": "<Invoice>" + string(bytes.Repeat([]byte("x"), 64)) + "</Invoice>",
	}, []string{"small.xml", "large.xml"})

	entries, err := archive.ReadZip("batch.zip", data, 32)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NoError(t, entries[0].Err)
	assert.Error(t, entries[1].Err)
	assert.Nil(t, entries[1].Data)
}

func TestReadZip_Corrupt(t *testing.T) {
	_, err := archive.ReadZip("bad.zip", []byte("PK\x03\x04garbage"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.zip")
}

func TestOpen(t *testing.T) {
	t.Run("bare xml", func(t *testing.T) {
		entries, err := archive.Open("uploads/fv1.xml", []byte("\xEF\xBB\xBF  <Invoice/>"), 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "uploads/fv1.xml", entries[0].Archive)
		assert.Equal(t, "fv1.xml", entries[0].Name)
	})

	t.Run("zip", func(t *testing.T) {
		data := buildZip(t, map[string]string{"a.xml": "<Invoice/>"}, []string{"a.xml"})
		entries, err := archive.Open("a.zip", data, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("xml over limit", func(t *testing.T) {
		_, err := archive.Open("big.xml", []byte("<Invoice></Invoice>"), 4)
		require.Error(t, err)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := archive.Open("doc.pdf", []byte("%PDF-1.4"), 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})
}

func TestIsZipIsXML(t *testing.T) {
	assert.True(t, archive.IsZip([]byte("PK\x03\x04rest")))
	assert.False(t, archive.IsZip([]byte("<xml/>")))
	assert.True(t, archive.IsXML([]byte("\n<?xml version=\"1.0\"?><a/>")))
	assert.False(t, archive.IsXML([]byte("hello")))
	assert.False(t, archive.IsXML(nil))
}
