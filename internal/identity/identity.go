// Package identity is the port and HTTP adapter for the identity registry
// collaborator.
package identity

//go:generate mockgen -source=identity.go -destination=mocks/mocks.go -package=mocks Client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"printtrace/internal/identity/models"
	id "printtrace/pkg/domain"
	dErrors "printtrace/pkg/domain-errors"
	"printtrace/pkg/platform/sentinel"
)

// Client looks up the registry status of a person.
type Client interface {
	Status(ctx context.Context, personID id.PersonID) (models.IdentityStatus, error)
}

// HTTPClient queries a remote identity registry. Unlike the classifier there
// is no retry loop: the mismatch check cannot be skipped silently, so a
// failed lookup surfaces as unavailable and the caller rejects the analysis.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type statusResponse struct {
	Status            string    `json:"status"`
	LastKnownActivity time.Time `json:"last_known_activity"`
}

// Status fetches the person's registry snapshot.
func (c *HTTPClient) Status(ctx context.Context, personID id.PersonID) (models.IdentityStatus, error) {
	endpoint := c.baseURL + "/v1/persons/" + url.PathEscape(string(personID)) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.IdentityStatus{}, dErrors.Wrap(err, dErrors.CodeInternal, "build identity request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.IdentityStatus{}, dErrors.Wrap(
			fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err),
			dErrors.CodeUnavailable, "identity registry unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return models.IdentityStatus{}, dErrors.Wrap(sentinel.ErrNotFound,
			dErrors.CodeNotFound, "person not known to identity registry")
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return models.IdentityStatus{}, dErrors.Wrap(
			fmt.Errorf("%w: identity registry returned %d", sentinel.ErrUnavailable, resp.StatusCode),
			dErrors.CodeUnavailable, "identity registry error")
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.IdentityStatus{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "decode identity response")
	}
	status, err := models.ParseStatus(body.Status)
	if err != nil {
		return models.IdentityStatus{}, err
	}
	return models.IdentityStatus{
		Status:            status,
		LastKnownActivity: body.LastKnownActivity,
	}, nil
}
