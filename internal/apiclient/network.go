package apiclient

import (
	"context"
	"net/url"
)

// NetworkInfo is the backend's classification of the requesting client.
type NetworkInfo struct {
	ClientIP    string `json:"client_ip"`
	IsInternal  bool   `json:"is_internal"`
	NetworkType string `json:"network_type"`
	AccessLevel string `json:"access_level,omitempty"`
	Message     string `json:"message,omitempty"`
}

// FeatureMap maps feature names to their enabled state for the client.
type FeatureMap map[string]bool

// Enabled reports whether name is present and switched on.
func (f FeatureMap) Enabled(name string) bool {
	return f[name]
}

// FeatureAccess is the answer to a live per-feature access check.
type FeatureAccess struct {
	Feature     string `json:"feature,omitempty"`
	HasAccess   bool   `json:"has_access"`
	NetworkType string `json:"network_type"`
	UserRole    string `json:"user_role"`
}

// NetworkStatus fetches the classification for the client IP carried by ctx.
func (c *Client) NetworkStatus(ctx context.Context) (*NetworkInfo, error) {
	var out NetworkInfo
	if err := c.getJSON(ctx, "/api/network/status", nil, &out); err != nil {
		return nil, err
	}
	if out.NetworkType == "" {
		if out.IsInternal {
			out.NetworkType = "internal"
		} else {
			out.NetworkType = "external"
		}
	}
	return &out, nil
}

// Features fetches the feature flags. Non-boolean entries in the backend's map
// (network_type, blocked_features) are dropped.
func (c *Client) Features(ctx context.Context) (FeatureMap, error) {
	var out struct {
		Features map[string]any `json:"features"`
	}
	if err := c.getJSON(ctx, "/api/network/features", nil, &out); err != nil {
		return nil, err
	}
	features := make(FeatureMap, len(out.Features))
	for name, v := range out.Features {
		if enabled, ok := v.(bool); ok {
			features[name] = enabled
		}
	}
	return features, nil
}

// CheckAccess asks the backend whether the current client and token may use
// feature. It is never served from a cache.
func (c *Client) CheckAccess(ctx context.Context, feature string) (*FeatureAccess, error) {
	var out FeatureAccess
	q := url.Values{"feature": {feature}}
	if err := c.getJSON(ctx, "/api/network/access", q, &out); err != nil {
		return nil, err
	}
	if out.Feature == "" {
		out.Feature = feature
	}
	return &out, nil
}
