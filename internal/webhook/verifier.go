package webhook

import (
	"errors"
	"fmt"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"
)

var ErrVerification = errors.New("webhook verification failed")

// Verifier checks a delivery's signature headers against its raw payload.
type Verifier interface {
	Verify(payload []byte, headers http.Header) error
}

// NewSvixVerifier verifies deliveries signed with a whsec_ secret.
func NewSvixVerifier(secret string) (Verifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("webhook secret: %w", err)
	}
	return wh, nil
}
