package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/domain"
	"github.com/budgetai/insights/internal/oracle"
)

// DefaultOracleTimeout bounds a single oracle call when none is configured.
const DefaultOracleTimeout = 20 * time.Second

// Chat replies used when the oracle cannot produce an answer.
const (
	ChatUnavailableReply = "I apologize, but I'm experiencing technical difficulties. Please check your API configuration or try again later."
	ChatEmptyReply       = "I apologize, but I'm having trouble generating a response right now. Please try again."
)

// TransactionLister returns the transaction snapshot for one user.
type TransactionLister interface {
	List(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// Engine runs one analysis pass per call: rules, oracle request, parse, aggregate.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	store      TransactionLister
	oracle     oracle.Oracle
	evaluator  Evaluator
	sampleSize int
	log        zerolog.Logger
}

// NewEngine creates an engine. A nil oracle makes every request take the transport
// fallback. A non-positive timeout uses DefaultOracleTimeout.
func NewEngine(store TransactionLister, o oracle.Oracle, timeout time.Duration, log zerolog.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	if o != nil {
		o = oracle.WithTimeout(o, timeout)
	}
	return &Engine{
		store:      store,
		oracle:     o,
		evaluator:  NewEvaluator(),
		sampleSize: DefaultSampleSize,
		log:        log,
	}
}

// Evaluator returns the rule evaluator the engine uses.
func (e *Engine) Evaluator() Evaluator {
	return e.evaluator
}

// Analyze fetches the user's snapshot and analyzes it. Only a store failure is returned
// as an error; oracle problems degrade to fallback payloads inside the report.
func (e *Engine) Analyze(ctx context.Context, userID string) (Report, error) {
	txs, err := e.store.List(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("Engine.Analyze: list transactions: %w", err)
	}
	return e.AnalyzeTransactions(ctx, txs), nil
}

// AnalyzeTransactions analyzes a caller-supplied snapshot.
func (e *Engine) AnalyzeTransactions(ctx context.Context, txs []domain.Transaction) Report {
	rule, alerts := e.evaluator.Evaluate(txs)
	result := e.requestInsights(ctx, txs)
	return Aggregate(rule, alerts, result, e.evaluator.FallbackRecommendations(txs))
}

// Alerts evaluates budget alerts for the user's stored snapshot without calling the oracle.
func (e *Engine) Alerts(ctx context.Context, userID string) ([]BudgetAlert, error) {
	txs, err := e.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Engine.Alerts: list transactions: %w", err)
	}
	_, alerts := e.evaluator.Evaluate(txs)
	return alerts, nil
}

func (e *Engine) requestInsights(ctx context.Context, txs []domain.Transaction) Result {
	if e.oracle == nil {
		return Unreachable(oracle.ErrUnavailable)
	}

	raw, err := e.oracle.Complete(ctx, oracle.Prompt{
		System:      insightsSystemPrompt,
		User:        insightsUserPrompt(txs, e.sampleSize),
		Temperature: insightsTemperature,
		MaxTokens:   insightsMaxTokens,
		JSON:        true,
	})
	// An empty answer still came back from the oracle, so it is ill-formed content.
	if errors.Is(err, oracle.ErrEmptyResponse) {
		raw, err = "", nil
	}
	if err != nil {
		e.log.Warn().Err(err).Str("fallback", string(ResultUnreachable)).Msg("Oracle request failed")
		return Unreachable(err)
	}

	result := ParseResponse(raw)
	if result.Kind != ResultOK {
		e.log.Warn().Err(result.Err).
			Str("fallback", string(result.Kind)).
			Int("raw_len", len(raw)).
			Msg("Oracle response unusable")
	}
	return result
}

// Chat answers a free-text question about the snapshot. It always returns text: oracle
// failures produce a fixed apology instead of an error.
func (e *Engine) Chat(ctx context.Context, txs []domain.Transaction, question string) string {
	if e.oracle == nil {
		return ChatUnavailableReply
	}

	reply, err := e.oracle.Complete(ctx, oracle.Prompt{
		System:      chatSystemPrompt,
		User:        chatUserPrompt(txs, question),
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if errors.Is(err, oracle.ErrEmptyResponse) {
		e.log.Warn().Msg("Chat oracle returned empty text")
		return ChatEmptyReply
	}
	if err != nil {
		e.log.Warn().Err(err).Msg("Chat oracle request failed")
		return ChatUnavailableReply
	}
	if strings.TrimSpace(reply) == "" {
		e.log.Warn().Msg("Chat oracle returned empty text")
		return ChatEmptyReply
	}
	return reply
}

// ChatForUser answers a question against the user's stored snapshot.
func (e *Engine) ChatForUser(ctx context.Context, userID, question string) string {
	txs, err := e.store.List(ctx, userID)
	if err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load chat snapshot")
		return ChatUnavailableReply
	}
	return e.Chat(ctx, txs, question)
}
