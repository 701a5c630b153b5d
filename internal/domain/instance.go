package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultInstanceName names the controller instance used when a query names none.
const DefaultInstanceName = "System Controller"

// KubernetesAPIPort is the management port of the container API on every instance.
const KubernetesAPIPort = "6443"

type InstanceKind string

const (
	KindControllerCloud InstanceKind = "central cloud"
	KindSubcloud        InstanceKind = "subcloud"
)

var oamPrefixPattern = regexp.MustCompile(`(https?)://(?:\d{1,3}\.){3}\d{1,3}:`)

type Instance struct {
	Name       string
	URL        string
	Kind       InstanceKind
	Credential Credential
}

type Credential struct {
	BearerToken string
	Infra       InfraLogin
}

type InfraLogin struct {
	User     string
	Password string
	AuthURL  string
}

func (i Instance) IsDefault() bool {
	return i.Kind == KindControllerCloud
}

// KubernetesBaseURL returns the container API root for the instance. The scheme is
// always https regardless of the configured URL.
func (i Instance) KubernetesBaseURL() (string, error) {
	prefix, err := oamPrefix(i.URL)
	if err != nil {
		return "", err
	}

	prefix = strings.Replace(prefix, "http://", "https://", 1)
	return prefix + KubernetesAPIPort, nil
}

// InfraBaseURL returns "scheme://ip:" so catalog paths, which start with the
// service port, can be appended verbatim.
func (i Instance) InfraBaseURL() (string, error) {
	return oamPrefix(i.URL)
}

func (i Instance) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("instance name is required")
	}
	if _, err := oamPrefix(i.URL); err != nil {
		return fmt.Errorf("instance %q: %w", i.Name, err)
	}

	return nil
}

func oamPrefix(rawURL string) (string, error) {
	match := oamPrefixPattern.FindString(rawURL)
	if match == "" {
		return "", fmt.Errorf("url %q has no http(s)://<ipv4>: prefix", rawURL)
	}

	return match, nil
}
