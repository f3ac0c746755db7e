package alerts

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/n0needt0/go-goodies/log"
)

const (
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

type Client struct {
	config ClientConfig
	http   *http.Client

	mu      sync.Mutex
	failing bool

	// dispatch runs alert delivery off the status path
	dispatch func(func())
}

type ClientConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
	App      AppConfig
	EventID  string
	Dev      bool
}

type AppConfig struct {
	Name    string
	Version string
}

type AlertPayload struct {
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Severity  string                 `json:"severity"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details"`
	Timestamp string                 `json:"timestamp"`
}

func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		http:   &http.Client{Timeout: timeout},
		dispatch: func(f func()) {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						log.Errorf("Recovered from panic in alert delivery: %v", r)
					}
				}()
				f()
			}()
		},
	}
}

// OnSuccess sends an info alert when the relay recovers from failure.
func (client *Client) OnSuccess(status string) {
	client.mu.Lock()
	recovered := client.failing
	client.failing = false
	client.mu.Unlock()

	if recovered {
		client.dispatch(func() {
			if err := client.SendInfoAlert("Relay Recovered", "Results relay is succeeding again", status); err != nil {
				log.Warnf("failed to send recovery alert: %v", err)
			}
		})
	}
}

// OnFailure sends a warning alert on the first failure after a success.
// Repeated failures stay quiet.
func (client *Client) OnFailure(status string) {
	client.mu.Lock()
	first := !client.failing
	client.failing = true
	client.mu.Unlock()

	if first {
		client.dispatch(func() {
			if err := client.SendWarningAlert("Relay Failure", "Results relay cycle failed", status); err != nil {
				log.Warnf("failed to send failure alert: %v", err)
			}
		})
	}
}

func (client *Client) SendWarningAlert(title, message, details string) error {
	return client.sendAlert(SeverityWarning, title, message, details)
}

func (client *Client) SendInfoAlert(title, message, details string) error {
	return client.sendAlert(SeverityInfo, title, message, details)
}

func (client *Client) sendAlert(severity, title, message, details string) error {
	if !client.config.Enabled {
		if client.config.Dev {
			log.Infof("Alert [%s]: %s - %s (%s)", severity, title, message, details)
		}
		return nil
	}

	if client.config.Endpoint == "" {
		return fmt.Errorf("alert endpoint not configured")
	}

	payload := AlertPayload{
		Service:  client.config.App.Name,
		Version:  client.config.App.Version,
		Severity: severity,
		Title:    title,
		Message:  message,
		Details: map[string]interface{}{
			"details":  details,
			"event_id": client.config.EventID,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	jsonData, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, client.config.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create alert request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("%s/%s", client.config.App.Name, client.config.App.Version))

	resp, err := client.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("alert request failed with status %d", resp.StatusCode)
	}

	log.Debugf("alert sent successfully: %s", title)
	return nil
}
