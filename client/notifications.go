package client

import "context"

// NotificationService administers notification channels.
type NotificationService struct {
	c *Client
}

type channelListResponse struct {
	Channels []NotificationChannel `json:"channels"`
}

// ListChannels returns all configured notification channels.
func (s *NotificationService) ListChannels(ctx context.Context) ([]NotificationChannel, error) {
	var resp channelListResponse
	if err := s.c.get(ctx, "/api/v1/notifications/channels", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

// CreateChannel registers a new delivery endpoint.
func (s *NotificationService) CreateChannel(ctx context.Context, ch *NotificationChannel) (*NotificationChannel, error) {
	var created NotificationChannel
	if err := s.c.post(ctx, "/api/v1/notifications/channels", ch, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
