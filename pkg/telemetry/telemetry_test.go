package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	tel, err := Init(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, tel.Tracer())
	assert.NotNil(t, tel.Meter())
	assert.False(t, tel.Enabled())

	cfg := &Config{Enabled: false, ServiceName: "events-test"}
	tel, err = Init(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, tel.config)
	assert.Same(t, tel, Get())
	assert.NoError(t, Shutdown(ctx))
}

func TestCreateResource(t *testing.T) {
	res := createResource(&Config{
		ServiceName:    "founder-events",
		ServiceVersion: "1.2.3",
		Environment:    "test",
	})

	attrs := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "founder-events", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, "founder-events", attrs["service.namespace"])
}

func TestStartSpan_NoopWhenDisabled(t *testing.T) {
	_, err := Init(context.Background(), nil)
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "registration.create")
	defer span.End()

	SetSpanError(span, errors.New("boom"))
	assert.Empty(t, GetTraceID(ctx))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, err := Init(context.Background(), nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware("events-test"))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
