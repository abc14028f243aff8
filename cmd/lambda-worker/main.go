package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"applykit-backend/internal/bootstrap"
	"applykit-backend/internal/shared/config"
	"applykit-backend/internal/shared/metrics"
	"applykit-backend/internal/shared/telemetry"
	"applykit-backend/internal/workerproc"
)

// mirrorWorker re-mirrors kit blobs for SQS batches. The kit service is built
// on first use and rebuilt on the next batch if that fails.
type mirrorWorker struct {
	mu    sync.Mutex
	build func() (workerproc.Mirrorer, error)
	kits  workerproc.Mirrorer
}

func (w *mirrorWorker) mirrorer() (workerproc.Mirrorer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.kits != nil {
		return w.kits, nil
	}
	m, err := w.build()
	if err != nil {
		return nil, err
	}
	w.kits = m
	return m, nil
}

// handle reports only the retryable records as batch item failures. Records
// that can never succeed are logged and dropped.
func (w *mirrorWorker) handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	m, err := w.mirrorer()
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"records": len(event.Records), "error": err.Error()})
		return events.SQSEventResponse{BatchItemFailures: failAll(event.Records)}, nil
	}

	var failures []events.SQSBatchItemFailure
	for _, record := range event.Records {
		err := workerproc.HandleMessage(ctx, m, record.Body)
		if err == nil {
			metrics.IncKitMirrorRetried()
			continue
		}
		fields := map[string]any{"sqs_message_id": record.MessageId, "error": err.Error()}
		if workerproc.Unrecoverable(err) {
			telemetry.Error("worker.mirror.dropped", fields)
			continue
		}
		telemetry.Warn("worker.mirror.failed", fields)
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

func failAll(records []events.SQSMessage) []events.SQSBatchItemFailure {
	out := make([]events.SQSBatchItemFailure, 0, len(records))
	for _, r := range records {
		out = append(out, events.SQSBatchItemFailure{ItemIdentifier: r.MessageId})
	}
	return out
}

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)
	w := &mirrorWorker{build: func() (workerproc.Mirrorer, error) {
		app, err := bootstrap.Build(cfg)
		if err != nil {
			return nil, err
		}
		return app.Kits, nil
	}}
	lambda.Start(w.handle)
}
