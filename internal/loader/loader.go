package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/sdpower/copilot-usage/internal/api"
	"github.com/sdpower/copilot-usage/internal/cache"
	"github.com/sdpower/copilot-usage/internal/logger"
	"github.com/sdpower/copilot-usage/internal/types"
	"go.uber.org/zap"
)

const (
	IdentityKey = "identity"
	UsageKey    = "usage"

	IdentityTTL = time.Hour
	UsageTTL    = 60 * time.Second

	itemsField    = "usageItems"
	quantityField = "grossQuantity"
)

// Loader runs the two-stage lookup: resolve the login for a token, then
// fetch and sum that login's premium request usage. Both stages go
// through the cache with their own TTL.
type Loader struct {
	client  api.Getter
	cache   *cache.Cache
	baseURL string
}

func New(client api.Getter, c *cache.Cache) *Loader {
	return &Loader{
		client:  client,
		cache:   c,
		baseURL: api.DefaultBaseURL,
	}
}

func (l *Loader) SetBaseURL(baseURL string) {
	l.baseURL = strings.TrimRight(baseURL, "/")
}

// ResolveIdentity returns the GitHub login owning token. Only a
// successfully resolved login is cached.
func (l *Loader) ResolveIdentity(ctx context.Context, token string) (string, error) {
	return cache.Fetch(ctx, l.cache, IdentityKey, IdentityTTL, func(ctx context.Context) (string, error) {
		return l.fetchIdentity(ctx, token)
	})
}

func (l *Loader) fetchIdentity(ctx context.Context, token string) (string, error) {
	data, err := l.client.Get(ctx, l.baseURL+"/user", token)
	if err != nil {
		return "", types.IdentityError{Reason: "/user request failed", Err: err}
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return "", types.IdentityError{Reason: "/user response is not an object"}
	}
	login, _ := obj["login"].(string)
	if login == "" {
		return "", types.IdentityError{Reason: "/user response has no login"}
	}
	logger.FromContext(ctx).Debug("resolved identity", zap.String("login", login))
	return login, nil
}

// FetchUsage returns the premium request total for the current period.
func (l *Loader) FetchUsage(ctx context.Context, token string) (types.UsageSnapshot, error) {
	return cache.Fetch(ctx, l.cache, UsageKey, UsageTTL, func(ctx context.Context) (types.UsageSnapshot, error) {
		return l.fetchUsage(ctx, token)
	})
}

func (l *Loader) fetchUsage(ctx context.Context, token string) (types.UsageSnapshot, error) {
	login, err := l.ResolveIdentity(ctx, token)
	if err != nil {
		return types.UsageSnapshot{}, fmt.Errorf("resolve identity: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/settings/billing/premium_request/usage",
		l.baseURL, url.PathEscape(login))
	data, err := l.client.Get(ctx, endpoint, token)
	if err != nil {
		return types.UsageSnapshot{}, fmt.Errorf("fetch usage: %w", err)
	}

	body := decodeUsageBody(data)
	used := sumQuantity(body.Items)

	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	logger.FromContext(ctx).Debug("fetched usage",
		zap.Int("items", len(body.Items)),
		zap.Float64("used", used),
	)
	return types.UsageSnapshot{Used: used, Raw: raw}, nil
}

// usageBody is the usage response after the list-or-object choice has
// been made. Everything downstream only ever sees Items. Anything that is
// neither a list nor an object with a usageItems list decodes as empty.
type usageBody struct {
	Items []map[string]any
}

func decodeUsageBody(data any) usageBody {
	var list []any
	switch v := data.(type) {
	case []any:
		list = v
	case map[string]any:
		list, _ = v[itemsField].([]any)
	}

	body := usageBody{Items: make([]map[string]any, 0, len(list))}
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			body.Items = append(body.Items, obj)
		}
	}
	return body
}

func sumQuantity(items []map[string]any) float64 {
	var total float64
	for _, item := range items {
		if q, ok := item[quantityField].(float64); ok {
			total += q
		}
	}
	return roundTenth(total)
}

func roundTenth(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
