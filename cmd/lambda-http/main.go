package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"applykit-backend/internal/bootstrap"
	"applykit-backend/internal/shared/config"
	"applykit-backend/internal/shared/server/respond"
	"applykit-backend/internal/shared/telemetry"
)

// gateway serves API Gateway HTTP API events through the kit router. The
// router is built on first use; a failed build is retried by the next
// invocation instead of pinning the instance to an error.
type gateway struct {
	mu      sync.Mutex
	build   func() (*gin.Engine, error)
	adapter *ginadapter.GinLambdaV2
}

func (g *gateway) proxy() (*ginadapter.GinLambdaV2, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.adapter != nil {
		return g.adapter, nil
	}
	router, err := g.build()
	if err != nil {
		return nil, err
	}
	g.adapter = ginadapter.NewV2(router)
	return g.adapter, nil
}

func (g *gateway) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p, err := g.proxy()
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{
			"route_key":  req.RouteKey,
			"request_id": req.RequestContext.RequestID,
			"error":      err.Error(),
		})
		return unavailable(), nil
	}
	return p.ProxyWithContext(ctx, req)
}

// unavailable answers in the API's error envelope so the web client can
// retry the same way it retries a 429.
func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    "service_unavailable",
		Message: "The service is starting up. Please retry.",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json", "Retry-After": "1"},
	}
}

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)
	g := &gateway{build: func() (*gin.Engine, error) {
		app, err := bootstrap.Build(cfg)
		if err != nil {
			return nil, err
		}
		return app.Router, nil
	}}
	lambda.Start(g.handle)
}
