package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"applykit-backend/internal/kits"
	"applykit-backend/internal/queue"
	"applykit-backend/internal/shared/telemetry"
)

// Mirrorer re-mirrors a stored kit's documents.
type Mirrorer interface {
	Mirror(ctx context.Context, userID, kitID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingKitID indicates a message without a user or kit id.
type ErrMissingKitID struct {
	Meta MessageMeta
}

func (e ErrMissingKitID) Error() string { return "missing user or kit id" }

// ErrProcess indicates mirroring failed after successful parsing.
type ErrProcess struct {
	KitID string
	Err   error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "mirror kit"
	}
	return "mirror kit: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message can never succeed and
// should be dropped.
func Unrecoverable(err error) bool {
	var empty ErrEmptyBody
	var decode ErrDecode
	var missing ErrMissingKitID
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.MirrorMessage, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.MirrorMessage{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.MirrorMessage{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.UserID) == "" || strings.TrimSpace(msg.KitID) == "" {
		return msg, meta, ErrMissingKitID{Meta: meta}
	}
	return msg, meta, nil
}

// HandleMessage parses and processes one message payload. A kit that no
// longer exists is treated as done.
func HandleMessage(ctx context.Context, m Mirrorer, body string) error {
	if m == nil {
		return errors.New("kit service not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return process(ctx, m, msg)
}

func process(ctx context.Context, m Mirrorer, msg queue.MirrorMessage) error {
	if err := m.Mirror(ctx, msg.UserID, msg.KitID); err != nil {
		if errors.Is(err, kits.ErrNotFound) {
			telemetry.Warn("worker.mirror.kit_gone", map[string]any{"kit_id": msg.KitID})
			return nil
		}
		return ErrProcess{KitID: msg.KitID, Err: err}
	}
	return nil
}
