package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create order: %w", InsufficientStock("estoque insuficiente para %s", "Café"))
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.True(t, Is(err, KindInsufficientStock))
	assert.False(t, Is(err, KindNotFound))
	assert.Equal(t, "create order: estoque insuficiente para Café", err.Error())

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "internal", KindOf(errors.New("boom")).String())
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause, "falha ao salvar pedido")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "falha ao salvar pedido: connection reset", err.Error())
}

func TestValidationFields(t *testing.T) {
	err := Validation("dados inválidos", "itens é obrigatório", "clienteId é obrigatório")
	assert.Equal(t, KindValidation, err.Kind)
	assert.Len(t, err.Fields, 2)
}
