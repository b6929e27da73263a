package emotion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/normalize"
)

// #region client-struct

// Client calls the emotion-recognition service. Readings are passed through
// the normalizer, so a sloppy service degrades to defaults instead of errors.
type Client struct {
	conn       grpc.ClientConnInterface
	closer     func() error
	config     ClientConfig
	normalizer *normalize.Normalizer
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// #endregion client-struct

// #region constructor

// NewClient connects to the emotion service at config.Address.
func NewClient(config ClientConfig, n *normalize.Normalizer, logger zerolog.Logger) (*Client, error) {
	if config.Address == "" {
		return nil, &claim.ConfigurationError{Key: "emotion.client.address"}
	}
	conn, err := grpc.NewClient(config.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", config.Address, err)
	}
	c := NewClientWithConn(conn, config, n, logger)
	c.closer = conn.Close
	return c, nil
}

// NewClientWithConn wraps an existing connection. The caller owns conn.
func NewClientWithConn(conn grpc.ClientConnInterface, config ClientConfig, n *normalize.Normalizer, logger zerolog.Logger) *Client {
	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		conn:       conn,
		closer:     func() error { return nil },
		config:     config,
		normalizer: n,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.With().Str("component", "emotion").Logger(),
	}
}

// Close shuts down the connection when the client owns it.
func (c *Client) Close() error {
	return c.closer()
}

// #endregion constructor

// #region analyze

// Analyze asks the service for a reading of req.Transcript. Transient
// service failures are retried up to MaxRetries times, each attempt gated
// by the rate limiter and bounded by Timeout. The returned input errors
// describe fields of the reply that were defaulted.
func (c *Client) Analyze(ctx context.Context, req Request) (claim.EmotionalSignal, []*claim.InputError, error) {
	in, err := structpb.NewStruct(map[string]any{
		"claim_id":    req.ClaimID,
		"customer_id": req.CustomerID,
		"transcript":  req.Transcript,
	})
	if err != nil {
		return claim.EmotionalSignal{}, nil, fmt.Errorf("build analyze request: %w", err)
	}

	var out *structpb.Struct
	for attempts := 1; ; attempts++ {
		out, err = c.invoke(ctx, in)
		if !shouldRetry(ctx, err, attempts, c.config.MaxRetries) {
			break
		}
		c.logger.Debug().Err(err).Int("attempt", attempts).Str("claim_id", req.ClaimID).Msg("retrying emotion analysis")
	}
	if err != nil {
		return claim.EmotionalSignal{}, nil, err
	}

	signal, inputErrs := c.normalizer.EmotionFromMap(out.AsMap())
	if signal.Transcript == "" {
		signal.Transcript = req.Transcript
	}
	if len(inputErrs) > 0 {
		c.logger.Warn().
			Str("claim_id", req.ClaimID).
			Int("defaulted_fields", len(inputErrs)).
			Msg("emotion reading partially defaulted")
	}
	return signal, inputErrs, nil
}

func (c *Client) invoke(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("emotion rate limit: %w", err)
	}
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, analyzeMethod, in, out); err != nil {
		return nil, fmt.Errorf("analyze rpc: %w", err)
	}
	return out, nil
}

// #endregion analyze
