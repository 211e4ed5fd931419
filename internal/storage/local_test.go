package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveReadDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := s.Save([]byte("a,b\n"), "../Banco Quincena.csv", DirBankFiles)
	require.NoError(t, err)
	assert.Contains(t, path, DirBankFiles)
	assert.Contains(t, path, "Banco_Quincena.csv")
	assert.True(t, s.Exists(path))

	data, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	require.NoError(t, s.Delete(path))
	assert.False(t, s.Exists(path))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read("../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestIsValidStatement(t *testing.T) {
	assert.True(t, IsValidStatement("sura.pdf", "application/pdf"))
	assert.True(t, IsValidStatement("assa.xlsx", ""))
	assert.True(t, IsValidStatement("fedpa.csv", "text/csv; charset=utf-8"))
	assert.False(t, IsValidStatement("foto.png", "image/png"))
	assert.False(t, IsValidStatement("sura.pdf", "image/png"))
}
