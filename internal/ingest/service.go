package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"inlet/internal/broker"
	"inlet/internal/config"
	"inlet/internal/logger"
	"inlet/internal/message"
	"inlet/internal/signature"
	pkgerrors "inlet/pkg/errors"
	"inlet/pkg/logging"
	"inlet/pkg/metrics"
	"inlet/pkg/ratelimit"
)

// Service runs the admission pipeline for a single webhook submission:
// rate-limit accounting, signature verification, payload validation, then an
// idempotent insert. A submission consumes a rate-limit token no matter how
// it is later rejected, so tampered traffic cannot probe for free.
type Service struct {
	verifier *signature.Verifier
	limiter  *ratelimit.KeyedLimiter
	store    message.Store
	producer broker.Producer
	topic    string
	maxBody  int
	validate *validator.Validate
	logger   logger.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewService(
	verifier *signature.Verifier,
	limiter *ratelimit.KeyedLimiter,
	store message.Store,
	producer broker.Producer,
	webhookCfg config.WebhookConfig,
	brokerCfg config.BrokerConfig,
	log logger.Logger,
) *Service {
	return &Service{
		verifier: verifier,
		limiter:  limiter,
		store:    store,
		producer: producer,
		topic:    brokerCfg.Kafka.OutputTopic,
		maxBody:  webhookCfg.BodyMaxBytes,
		validate: validator.New(),
		logger:   log,
		now:      time.Now,
	}
}

// Process classifies one submission. Rejections have a fixed precedence:
// a bad signature masks a malformed payload, which masks an exhausted
// rate limit. The receipt distinguishes first delivery from replay.
func (s *Service) Process(ctx context.Context, rawBody []byte, signatureHeader, clientKey string) (*Receipt, error) {
	start := time.Now()
	result := ResultError
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(result).Inc()
		metrics.ObserveIngestDuration(time.Since(start), result)
	}()

	allowed := s.limiter.Allow(clientKey)

	if !s.verifier.Verify(rawBody, signatureHeader) {
		result = ResultInvalidSignature
		s.logger.WarnwCtx(ctx, "Rejected webhook: signature mismatch", "client_key", clientKey)
		return nil, pkgerrors.ErrInvalidSignature
	}

	payload, err := s.parsePayload(rawBody)
	if err != nil {
		result = ResultMalformedPayload
		s.logger.WarnwCtx(ctx, "Rejected webhook: malformed payload", "client_key", clientKey, "error", err)
		return nil, err
	}

	if !allowed {
		result = ResultRateLimited
		s.logger.WarnwCtx(ctx, "Rejected webhook: rate limit exceeded", "client_key", clientKey)
		return nil, pkgerrors.ErrRateLimited
	}

	ctx = logging.WithMessageID(ctx, payload.ID)
	msg := &message.Message{
		ID:           payload.ID,
		Sender:       payload.Sender,
		Body:         *payload.Body,
		ReceivedAt:   s.now().UTC(),
		RawSignature: signatureHeader,
	}

	created, err := s.store.Insert(ctx, msg)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to store webhook message", "error", err)
		return nil, err
	}

	if !created {
		result = ResultDuplicate
		s.logger.InfowCtx(ctx, "Duplicate webhook delivery", "sender", payload.Sender)
		return &Receipt{ID: payload.ID, Result: ResultDuplicate, Duplicate: true}, nil
	}

	result = ResultCreated
	s.logger.InfowCtx(ctx, "Webhook message accepted", "sender", payload.Sender)
	s.publish(ctx, msg)

	return &Receipt{ID: payload.ID, Result: ResultCreated}, nil
}

func (s *Service) parsePayload(rawBody []byte) (*WebhookPayload, error) {
	if s.maxBody > 0 && len(rawBody) > s.maxBody {
		return nil, pkgerrors.ErrMalformedPayload.WithDetail("message",
			fmt.Sprintf("body exceeds %d bytes", s.maxBody))
	}

	var payload WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, pkgerrors.ErrMalformedPayload.WithCause(err)
	}

	if err := s.validate.Struct(&payload); err != nil {
		return nil, pkgerrors.ErrMalformedPayload.WithCause(err)
	}

	return &payload, nil
}

// publish is best effort. Storage is the source of truth; a broker outage
// must not fail an already accepted submission.
func (s *Service) publish(ctx context.Context, msg *message.Message) {
	event := broker.AcceptedEvent{
		ID:         msg.ID,
		Sender:     msg.Sender,
		Body:       msg.Body,
		ReceivedAt: msg.ReceivedAt,
	}
	if err := s.producer.Publish(ctx, s.topic, event); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish accepted event", "error", err, "topic", s.topic)
	}
}
