// internal/infra/sms/mtarget.go
package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gl3e_manager/internal/domain/notify"
)

const defaultMTargetURL = "https://api-public-2.mtarget.fr/messages"

// MTargetConfig holds credentials for the mTarget HTTP gateway.
type MTargetConfig struct {
	Username  string
	Password  string
	ServiceID string
	Sender    string
	APIURL    string
}

// MTargetClient sends SMS through the mTarget gateway (primary provider for
// Cameroon numbers).
type MTargetClient struct {
	cfg        MTargetConfig
	httpClient *http.Client
}

func NewMTargetClient(cfg MTargetConfig, httpClient *http.Client) *MTargetClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	cfg.APIURL = normalizeMTargetURL(cfg.APIURL)
	if strings.TrimSpace(cfg.Sender) == "" {
		cfg.Sender = "FM OTP"
	}
	return &MTargetClient{cfg: cfg, httpClient: httpClient}
}

func (c *MTargetClient) Name() string { return "mtarget" }

// Configured reports whether the client has usable credentials.
func (c *MTargetClient) Configured() bool {
	return c.cfg.Username != "" && c.cfg.Password != "" && c.cfg.ServiceID != ""
}

func (c *MTargetClient) Send(ctx context.Context, destination string, p notify.Payload) error {
	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)
	form.Set("msisdn", NormalizeForMTarget(destination))
	form.Set("msg", p.Body)
	form.Set("service_id", c.cfg.ServiceID)
	form.Set("sender", strings.TrimSpace(c.cfg.Sender))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("mtarget: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mtarget: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.TrimSpace(string(body))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mtarget: API error %d: %s", resp.StatusCode, truncate(text, 250))
	}
	// mTarget can return HTTP 200 with a business error in the body.
	lower := strings.ToLower(text)
	if strings.Contains(lower, "error") || strings.Contains(lower, "ko") {
		return fmt.Errorf("mtarget: business error: %s", truncate(text, 250))
	}
	return nil
}

// normalizeMTargetURL rewrites the legacy endpoint to the current public one.
func normalizeMTargetURL(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" || strings.HasSuffix(cleaned, "/send") || strings.Contains(cleaned, "api.mtarget.fr/send") {
		return defaultMTargetURL
	}
	return cleaned
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
