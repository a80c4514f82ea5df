package httpapi

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alejandrodnm/autobid/internal/domain"
)

const (
	catalogCacheSize = 512

	conditionQuery = `query Condition($id: String!) {
  condition(id: $id) {
    id
    question
    category
  }
}`
)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type conditionResponse struct {
	Data struct {
		Condition *struct {
			ID       string `json:"id"`
			Question string `json:"question"`
			Category string `json:"category"`
		} `json:"condition"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Catalog implementa ports.ConditionCatalog sobre GraphQL. Solo para mostrar:
// los resultados se cachean y un fallo nunca afecta al matching.
type Catalog struct {
	c     *Client
	cache *lru.Cache[string, domain.Condition]
}

// NewCatalog returns the catalog adapter backed by c.
func NewCatalog(c *Client) *Catalog {
	cache, _ := lru.New[string, domain.Condition](catalogCacheSize)
	return &Catalog{c: c, cache: cache}
}

// Resolve looks up display metadata for a condition id.
func (cat *Catalog) Resolve(ctx context.Context, conditionID string) (domain.Condition, error) {
	id := domain.NormalizeConditionID(conditionID)
	if cond, ok := cat.cache.Get(id); ok {
		return cond, nil
	}
	if cat.c.cfg.CatalogURL == "" {
		return domain.Condition{ID: conditionID, Label: domain.ShortHex(conditionID)}, nil
	}

	var resp conditionResponse
	req := graphQLRequest{Query: conditionQuery, Variables: map[string]any{"id": conditionID}}
	if err := cat.c.post(ctx, cat.c.catalogLimiter, maxRetries, cat.c.cfg.CatalogURL, req, &resp); err != nil {
		return domain.Condition{}, fmt.Errorf("httpapi.Resolve %s: %w", conditionID, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return domain.Condition{}, fmt.Errorf("httpapi.Resolve %s: graphql: %s", conditionID, strings.Join(msgs, "; "))
	}
	if resp.Data.Condition == nil {
		return domain.Condition{}, fmt.Errorf("httpapi.Resolve %s: not found", conditionID)
	}

	cond := domain.Condition{
		ID:       resp.Data.Condition.ID,
		Label:    resp.Data.Condition.Question,
		Category: resp.Data.Condition.Category,
	}
	cat.cache.Add(id, cond)
	return cond, nil
}
