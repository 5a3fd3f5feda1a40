package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client tells the marketplace API that an offer changed so it can fan out
// its own notifications (push, chat banners). Fire-and-forget from the
// update engine's point of view; delivery is not part of the commit.
type Client struct {
	baseURL        string
	internalSecret string
	httpClient     *http.Client
}

type Notifier interface {
	OfferUpdated(ctx context.Context, docID uint64, version uint64, userID uint64) error
}

func NewClient(baseURL, internalSecret string) *Client {
	return &Client{
		baseURL:        baseURL,
		internalSecret: internalSecret,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type offerUpdatedRequest struct {
	Version   uint64 `json:"version"`
	UpdatedBy uint64 `json:"updated_by"`
}

func (c *Client) OfferUpdated(ctx context.Context, docID uint64, version uint64, userID uint64) error {
	url := fmt.Sprintf(
		"%s/internal/offers/%d/updated",
		c.baseURL,
		docID,
	)

	payload := offerUpdatedRequest{
		Version:   version,
		UpdatedBy: userID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.internalSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"marketplace notify error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	return nil
}
