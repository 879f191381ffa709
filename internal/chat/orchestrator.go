package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/chatbridge/assistant/internal/gateway"
	"github.com/chatbridge/assistant/internal/models"
	"github.com/chatbridge/assistant/internal/session"
	"github.com/chatbridge/assistant/pkg/logger"
	"github.com/chatbridge/assistant/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNoChatSelected is returned when sending without a chat
	ErrNoChatSelected = errors.New("no chat selected")
	// ErrEmptyMessage is returned when the text is blank after trimming
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInProgress is returned while another send is running on the same orchestrator
	ErrSendInProgress = errors.New("a send is already in progress")
)

// Outcome classifies how a send ended
type Outcome int

const (
	// OutcomeDelivered means the responder's answer was appended
	OutcomeDelivered Outcome = iota
	// OutcomeDiagnostic means a fallback reply was appended in place of an answer
	OutcomeDiagnostic
	// OutcomeRejected means the input failed a precondition and nothing was written
	OutcomeRejected
	// OutcomeBusy means another send was in flight and this call did nothing
	OutcomeBusy
	// OutcomeAborted means the user message could not be stored
	OutcomeAborted
	// OutcomeIncomplete means the user message was stored but the reply was not
	OutcomeIncomplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeDiagnostic:
		return "diagnostic"
	case OutcomeRejected:
		return "rejected"
	case OutcomeBusy:
		return "busy"
	case OutcomeAborted:
		return "aborted"
	case OutcomeIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// SendResult reports what one Send did
type SendResult struct {
	Outcome Outcome
	ChatID  string
	// Text is the trimmed user text
	Text string
	// Reply is the bot content that was appended, or attempted
	Reply       string
	UserMessage models.Message
	BotMessage  models.Message
	// Err is set for rejected, busy and aborted sends
	Err error
	// Warnings are failures that were logged and did not stop the send
	Warnings []error
}

// OK reports whether both the user message and a reply reached the conversation
func (r SendResult) OK() bool {
	return r.Outcome == OutcomeDelivered || r.Outcome == OutcomeDiagnostic
}

// Orchestrator turns one submitted string into a stored user message and a
// stored bot reply. Only one send runs at a time per orchestrator.
type Orchestrator struct {
	gw           gateway.Gateway
	identity     session.Identity
	conversation Refresher
	notifier     Notifier
	log          *logger.Logger
	metrics      *observability.Metrics
	tracer       trace.Tracer

	processing atomic.Bool
}

// OrchestratorOptions configures NewOrchestrator
type OrchestratorOptions struct {
	Gateway  gateway.Gateway
	Identity session.Identity
	// Conversation is re-pulled before Send returns
	Conversation Refresher
	// Notifier receives TriggerMessageSent after each completed send
	Notifier Notifier
	Logger   *logger.Logger
	Metrics  *observability.Metrics
}

// NewOrchestrator creates an orchestrator for one identity
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.Noop()
	}
	return &Orchestrator{
		gw:           opts.Gateway,
		identity:     opts.Identity,
		conversation: opts.Conversation,
		notifier:     opts.Notifier,
		log:          opts.Logger.WithComponent("orchestrator"),
		metrics:      opts.Metrics,
		tracer:       observability.Tracer("chat"),
	}
}

// Processing reports whether a send is in flight
func (o *Orchestrator) Processing() bool {
	return o.processing.Load()
}

// Send appends userText to chatID, asks the responder, appends its reply and
// re-pulls the conversation. Responder failures become an in-band reply; only
// a failed user append aborts. Cancelling ctx does not stop a started send.
func (o *Orchestrator) Send(ctx context.Context, chatID, userText string) SendResult {
	text := strings.TrimSpace(userText)
	result := SendResult{ChatID: chatID, Text: text}

	switch {
	case chatID == "":
		result.Outcome, result.Err = OutcomeRejected, ErrNoChatSelected
		return result
	case text == "":
		result.Outcome, result.Err = OutcomeRejected, ErrEmptyMessage
		return result
	}

	if !o.processing.CompareAndSwap(false, true) {
		result.Outcome, result.Err = OutcomeBusy, ErrSendInProgress
		return result
	}
	defer o.processing.Store(false)

	ctx = session.NewContext(context.WithoutCancel(ctx), o.identity)
	ctx, span := o.tracer.Start(ctx, "chat.Send", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer span.End()

	log := o.log.WithChatID(chatID)

	defer func() {
		o.metrics.RecordSend(ctx, result.Outcome.String())
		span.SetAttributes(attribute.String("send.outcome", result.Outcome.String()))
	}()

	userMessage, err := o.gw.AppendMessage(ctx, chatID, text, models.SenderUser)
	if err != nil {
		log.LogError(err, "failed to store user message")
		span.RecordError(err)
		span.SetStatus(codes.Error, "append user message")
		result.Outcome, result.Err = OutcomeAborted, err
		return result
	}
	result.UserMessage = userMessage
	span.AddEvent("user_message_stored")

	o.touch(ctx, log, &result)

	reply, err := o.gw.InvokeResponder(ctx, chatID, text)
	switch {
	case err != nil:
		log.LogWarn(err, "responder call failed")
		result.Warnings = append(result.Warnings, err)
		result.Outcome, result.Reply = OutcomeDiagnostic, gateway.ApologyText
	case reply.OK():
		result.Outcome, result.Reply = OutcomeDelivered, reply.Text
	default:
		log.Warn("responder returned no usable reply", "success", reply.Success)
		result.Outcome, result.Reply = OutcomeDiagnostic, reply.Fallback()
	}
	span.AddEvent("responder_answered", trace.WithAttributes(attribute.Bool("responder.ok", result.Outcome == OutcomeDelivered)))

	botMessage, err := o.gw.AppendMessage(ctx, chatID, result.Reply, models.SenderBot)
	if err != nil {
		log.LogError(err, "failed to store bot message")
		result.Warnings = append(result.Warnings, err)
		result.Outcome = OutcomeIncomplete
	} else {
		result.BotMessage = botMessage
	}

	o.touch(ctx, log, &result)

	if o.conversation != nil {
		if err := o.conversation.Refresh(ctx); err != nil {
			log.LogWarn(err, "failed to refresh conversation")
			result.Warnings = append(result.Warnings, err)
		}
	}
	if o.notifier != nil {
		o.notifier.Notify(TriggerMessageSent)
	}
	return result
}

func (o *Orchestrator) touch(ctx context.Context, log *logger.Logger, result *SendResult) {
	if _, err := o.gw.TouchChatTimestamp(ctx, result.ChatID); err != nil {
		log.LogWarn(err, "failed to update chat timestamp")
		result.Warnings = append(result.Warnings, err)
	}
}
