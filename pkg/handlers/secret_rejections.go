package handlers

import (
	"context"

	"github.com/d4l-data4life/go-svc/pkg/logging"

	"github.com/d4l-data4life/ollama-chat/pkg/metrics"
)

const securityEventSecretRejected = "local-api-secret-rejected"

// secretRejections receives the failures of go-svc's ServiceSecretAuthenticator.
// A rejected call is audited and counted; the error goes back unchanged.
type secretRejections struct{}

func (secretRejections) ErrGeneric(ctx context.Context, err error) error {
	metrics.RejectedRequestsTotal.Inc()
	logging.LogAuditSecurityFailure(ctx, securityEventSecretRejected)
	logging.LogWarningfCtx(ctx, err, "Local API request rejected")
	return err
}
