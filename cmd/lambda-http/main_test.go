package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applykit-backend/internal/shared/server/respond"
)

func healthEvent() events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RouteKey: "GET /api/v1/health",
		RawPath:  "/api/v1/health",
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RequestID:  "req-1",
			DomainName: "api.applykit.test",
			HTTP:       events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: http.MethodGet, Path: "/api/v1/health", SourceIP: "203.0.113.9"},
		},
	}
}

func TestGatewayRetriesFailedBuild(t *testing.T) {
	gin.SetMode(gin.TestMode)
	builds := 0
	g := &gateway{build: func() (*gin.Engine, error) {
		builds++
		if builds == 1 {
			return nil, errors.New("database not reachable")
		}
		r := gin.New()
		r.GET("/api/v1/health", func(c *gin.Context) { respond.OK(c, gin.H{"ok": true}) })
		return r, nil
	}}
	ctx := context.Background()

	resp, err := g.handle(ctx, healthEvent())
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Headers["Retry-After"])
	var envelope respond.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &envelope))
	assert.Equal(t, "service_unavailable", envelope.Error.Code)

	resp, err = g.handle(ctx, healthEvent())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, resp.Body)

	_, err = g.handle(ctx, healthEvent())
	require.NoError(t, err)
	assert.Equal(t, 2, builds, "a built router is reused")
}
