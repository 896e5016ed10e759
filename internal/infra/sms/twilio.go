// internal/infra/sms/twilio.go
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gl3e_manager/internal/domain/notify"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioConfig holds credentials for the Twilio REST API.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

// TwilioClient sends SMS through Twilio (fallback for Cameroon numbers,
// primary for everything else).
type TwilioClient struct {
	cfg        TwilioConfig
	httpClient *http.Client
	apiBase    string
}

func NewTwilioClient(cfg TwilioConfig, httpClient *http.Client) *TwilioClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TwilioClient{cfg: cfg, httpClient: httpClient, apiBase: twilioAPIBase}
}

func (c *TwilioClient) Name() string { return "twilio" }

// Configured reports whether the client has usable credentials.
func (c *TwilioClient) Configured() bool {
	return c.cfg.AccountSID != "" && c.cfg.AuthToken != ""
}

func (c *TwilioClient) Send(ctx context.Context, destination string, p notify.Payload) error {
	if !c.Configured() {
		return fmt.Errorf("twilio: not configured")
	}

	to, err := NormalizeForTwilio(destination)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.PhoneNumber)
	form.Set("Body", p.Body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.apiBase, c.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("twilio: error %d: %s", apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("twilio: API error %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 250))
}
