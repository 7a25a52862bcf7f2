package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSection(t *testing.T) {
	for _, raw := range []string{"isolamento", " Batimento ", "bobina-carcaça", "peças-atuais", "metodologia", "isolation"} {
		s, err := ParseSection(raw)
		require.NoError(t, err, raw)
		assert.True(t, s.Valid())
	}

	_, err := ParseSection("fotos-gerais")
	assert.ErrorIs(t, err, ErrInvalidSection)
}

func TestSectionsOrderIsFixed(t *testing.T) {
	assert.Equal(t, []Section{"isolamento", "bobina-carcaca", "batimento", "metodologia", "pecas-atuais"}, Sections)
	for _, s := range Sections {
		assert.NotEmpty(t, s.Title())
	}
}

func TestErrorTaxonomy(t *testing.T) {
	txErr := &TransactionError{Op: "save report", Err: errors.New("boom")}
	assert.ErrorIs(t, txErr, ErrConflict)

	renderErr := &RenderError{Stage: "persisting", Err: errors.New("disk full")}
	assert.ErrorIs(t, renderErr, ErrRender)
	assert.Contains(t, renderErr.Error(), "persisting")
}
