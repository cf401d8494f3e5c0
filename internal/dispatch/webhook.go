package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/httpclient"
)

// Dial payload constants expected by the dialing workflow.
const (
	OperationOutboundCall = "SGL-Outbound-Call"
	WorkflowStatusActive  = "active"
)

// webhook posts JSON to one messaging platform endpoint with the platform
// bearer key. The response status is logged; only transport failures and
// an open breaker are returned.
type webhook struct {
	client *httpclient.CircuitBreakerClient
	url    string
	key    string
	logger *slog.Logger
}

func (w *webhook) post(ctx context.Context, payload any) error {
	headers := map[string]string{"Authorization": "Bearer " + w.key}

	resp, err := w.client.PostJSON(ctx, w.url, payload, headers)
	if err != nil {
		return fmt.Errorf("post %s: %w", w.client.Name(), err)
	}

	status := resp.StatusCode
	if _, err := httpclient.ReadResponse(resp, w.client.Name()); err != nil {
		w.logger.WarnContext(ctx, "webhook rejected request",
			slog.String("webhook", w.client.Name()),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		return nil
	}

	w.logger.InfoContext(ctx, "webhook accepted request",
		slog.String("webhook", w.client.Name()),
		slog.Int("status", status),
	)
	return nil
}

// SMSWebhook sends text messages.
type SMSWebhook struct {
	hook webhook
}

// NewSMSWebhook creates an SMS sender posting to url.
func NewSMSWebhook(client *httpclient.CircuitBreakerClient, url, key string, logger *slog.Logger) *SMSWebhook {
	return &SMSWebhook{hook: webhook{client: client, url: url, key: key, logger: logger}}
}

type smsPayload struct {
	ContactNo string `json:"contact_no"`
	Message   string `json:"message"`
}

// Send delivers message to phone.
func (s *SMSWebhook) Send(ctx context.Context, phone, message string) error {
	return s.hook.post(ctx, smsPayload{ContactNo: phone, Message: message})
}

// DialVariables are handed to the voice agent for the call.
type DialVariables struct {
	LeadName         string `json:"lead_name"`
	LeadID           string `json:"lead_id"`
	UserID           string `json:"user_id"`
	BotName          string `json:"bot_name"`
	BrokerageName    string `json:"brokerage_name"`
	CommunicationID  string `json:"communication_id"`
	AdditionalInfo   string `json:"additional_info"`
	FirstInteraction string `json:"first_interaction"`
}

// DialRequest is the body of an outbound call request. Operation,
// WorkflowStatus and FromNumber are filled in by the Dialer when empty.
type DialRequest struct {
	InboundVariablesURL string        `json:"inbound_dynamic_variables_webhook_url"`
	AgentID             string        `json:"override_agent_id"`
	ToNumber            string        `json:"to_number"`
	FromNumber          string        `json:"from_number"`
	Operation           string        `json:"operation"`
	WorkflowStatus      string        `json:"workflow_status"`
	Variables           DialVariables `json:"retell_llm_dynamic_variables"`
}

// Dialer starts outbound voice agent calls.
type Dialer struct {
	hook       webhook
	fromNumber string
}

// NewDialer creates a Dialer posting to url and calling from fromNumber.
func NewDialer(client *httpclient.CircuitBreakerClient, url, key, fromNumber string, logger *slog.Logger) *Dialer {
	return &Dialer{
		hook:       webhook{client: client, url: url, key: key, logger: logger},
		fromNumber: fromNumber,
	}
}

// Dial asks the dialing workflow to place the call.
func (d *Dialer) Dial(ctx context.Context, req DialRequest) error {
	if req.FromNumber == "" {
		req.FromNumber = d.fromNumber
	}
	if req.Operation == "" {
		req.Operation = OperationOutboundCall
	}
	if req.WorkflowStatus == "" {
		req.WorkflowStatus = WorkflowStatusActive
	}
	return d.hook.post(ctx, req)
}
