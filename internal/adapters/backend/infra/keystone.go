package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/dcloud-assistant/internal/adapters/backend"
	"github.com/bnema/dcloud-assistant/internal/domain"
)

const (
	keystoneTokensPath  = "/v3/auth/tokens"
	subjectTokenHeader  = "X-Subject-Token"
	defaultDomainID     = "default"
	defaultProjectScope = "admin"
)

type keystoneRequest struct {
	Auth keystoneAuth `json:"auth"`
}

type keystoneAuth struct {
	Identity keystoneIdentity `json:"identity"`
	Scope    keystoneScope    `json:"scope"`
}

type keystoneIdentity struct {
	Methods  []string         `json:"methods"`
	Password keystonePassword `json:"password"`
}

type keystonePassword struct {
	User keystoneUser `json:"user"`
}

type keystoneUser struct {
	Name     string         `json:"name"`
	Domain   keystoneDomain `json:"domain"`
	Password string         `json:"password"`
}

type keystoneScope struct {
	Project keystoneProject `json:"project"`
}

type keystoneProject struct {
	Name   string         `json:"name"`
	Domain keystoneDomain `json:"domain"`
}

type keystoneDomain struct {
	ID string `json:"id"`
}

// Keystone exchanges a user and password for a project-scoped token.
type Keystone struct {
	httpClient *http.Client
}

func NewKeystone(httpClient *http.Client) *Keystone {
	return &Keystone{httpClient: httpClient}
}

func (k *Keystone) Token(ctx context.Context, login domain.InfraLogin) (string, error) {
	payload, err := json.Marshal(newKeystoneRequest(login))
	if err != nil {
		return "", fmt.Errorf("encode keystone request: %w", err)
	}

	endpoint := strings.TrimRight(login.AuthURL, "/") + keystoneTokensPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &domain.AuthError{Reason: fmt.Sprintf("create keystone request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", &domain.AuthError{Reason: err.Error()}, domain.ErrTransport)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := backend.ReadBody(resp)
	if err != nil {
		return "", fmt.Errorf("%w: %w", &domain.AuthError{Reason: err.Error()}, err)
	}

	if resp.StatusCode != http.StatusCreated {
		return "", &domain.AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	token := resp.Header.Get(subjectTokenHeader)
	if token == "" {
		return "", &domain.AuthError{StatusCode: resp.StatusCode, Body: string(body), Reason: "keystone response has no " + subjectTokenHeader + " header"}
	}

	return token, nil
}

func newKeystoneRequest(login domain.InfraLogin) keystoneRequest {
	return keystoneRequest{Auth: keystoneAuth{
		Identity: keystoneIdentity{
			Methods: []string{"password"},
			Password: keystonePassword{User: keystoneUser{
				Name:     login.User,
				Domain:   keystoneDomain{ID: defaultDomainID},
				Password: login.Password,
			}},
		},
		Scope: keystoneScope{Project: keystoneProject{
			Name:   defaultProjectScope,
			Domain: keystoneDomain{ID: defaultDomainID},
		}},
	}}
}
