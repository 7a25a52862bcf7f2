package tracing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsClientData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/reports/:id"),
		attribute.String("client_tax_id", "12.345.678/0001-90"),
		attribute.String("note", strings.Repeat("x", 300)),
	)

	assert.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
	assert.Len(t, attrs[1].Value.AsString(), maxAttributeLength)
}

func TestSafeErrorNil(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("boom")), "boom")
}
