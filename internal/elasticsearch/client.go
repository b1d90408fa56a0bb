package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"notifyconsole/internal/config"
	"notifyconsole/internal/logger"
	"notifyconsole/internal/session"
)

// AuditEntry is the document indexed for every committed rule change.
type AuditEntry struct {
	Kind      string    `json:"kind"` // saved, deleted
	Category  string    `json:"category"`
	RuleID    string    `json:"rule_id"`
	RuleName  string    `json:"rule_name,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	Active    bool      `json:"active"`
	Severity  string    `json:"severity,omitempty"`
	InApp     bool      `json:"in_app"`
	Email     bool      `json:"email"`
	Created   bool      `json:"created"`
	Blocks    int       `json:"blocks"`
	Timestamp time.Time `json:"@timestamp"`
}

type Client struct {
	es     *elasticsearch.Client
	config config.ElasticsearchConfig
}

// NewClient connects to the cluster. A disabled config yields a nil client
// whose methods do nothing.
func NewClient(cfg config.ElasticsearchConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned error: %s", res.String())
	}

	logger.Info("Elasticsearch audit client initialized", zap.Strings("addresses", cfg.Addresses))

	return &Client{es: es, config: cfg}, nil
}

// IndexName returns the date-rolled index a change made at t goes to.
func (c *Client) IndexName(t time.Time) string {
	return fmt.Sprintf("%s-%s", c.config.IndexPrefix, t.UTC().Format("2006.01.02"))
}

// NewAuditEntry flattens a change into its audit document.
func NewAuditEntry(ch session.Change) *AuditEntry {
	e := &AuditEntry{
		Kind:      string(ch.Kind),
		Category:  string(ch.Category),
		RuleID:    ch.RuleID,
		Created:   ch.Created,
		Timestamp: ch.At.UTC(),
	}
	if r := ch.Rule; r != nil {
		e.RuleName = r.Name
		e.Scope = r.Scope
		e.Active = r.Active
		e.Severity = string(r.Severity)
		e.InApp = r.Channels.InApp
		e.Email = r.Channels.Email
		if r.Template != nil {
			e.Blocks = len(r.Template.Blocks)
		}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e
}

// RecordChange indexes ch into the audit index.
func (c *Client) RecordChange(ctx context.Context, ch session.Change) error {
	if c == nil || c.es == nil {
		return nil
	}

	entry := NewAuditEntry(ch)
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	req := esapi.IndexRequest{
		Index: c.IndexName(entry.Timestamp),
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("failed to index audit entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch indexing error: %s", res.String())
	}

	logger.Debug("Rule change indexed",
		zap.String("index", c.IndexName(entry.Timestamp)),
		zap.String("category", entry.Category),
		zap.String("rule_id", entry.RuleID),
		zap.String("kind", entry.Kind))

	return nil
}

// SearchQuery filters the audit trail.
type SearchQuery struct {
	Category  string     `json:"category,omitempty"`
	RuleID    string     `json:"rule_id,omitempty"`
	Kind      string     `json:"kind,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Size      int        `json:"size,omitempty"`
	From      int        `json:"from,omitempty"`
}

type SearchResult struct {
	Total int64        `json:"total"`
	Hits  []AuditEntry `json:"hits"`
}

// searchBody builds the bool query of q, newest first.
func searchBody(q *SearchQuery) map[string]interface{} {
	must := []map[string]interface{}{}
	for field, val := range map[string]string{"category": q.Category, "rule_id": q.RuleID, "kind": q.Kind} {
		if val != "" {
			must = append(must, map[string]interface{}{"term": map[string]interface{}{field: val}})
		}
	}
	if q.StartTime != nil || q.EndTime != nil {
		rng := map[string]interface{}{}
		if q.StartTime != nil {
			rng["gte"] = q.StartTime.Format(time.RFC3339)
		}
		if q.EndTime != nil {
			rng["lte"] = q.EndTime.Format(time.RFC3339)
		}
		must = append(must, map[string]interface{}{"range": map[string]interface{}{"@timestamp": rng}})
	}

	size := q.Size
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must}},
		"size":  size,
		"from":  q.From,
		"sort": []map[string]interface{}{
			{"@timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
}

// SearchChanges queries every audit index.
func (c *Client) SearchChanges(ctx context.Context, q *SearchQuery) (*SearchResult, error) {
	if c == nil || c.es == nil {
		return &SearchResult{Hits: []AuditEntry{}}, nil
	}

	body, err := json.Marshal(searchBody(q))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.IndexPrefix + "-*"},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit entries: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source AuditEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	result := &SearchResult{
		Total: response.Hits.Total.Value,
		Hits:  make([]AuditEntry, 0, len(response.Hits.Hits)),
	}
	for _, hit := range response.Hits.Hits {
		result.Hits = append(result.Hits, hit.Source)
	}
	return result, nil
}

// CreateIndexTemplate installs the mapping of the audit indices.
func (c *Client) CreateIndexTemplate(ctx context.Context) error {
	if c == nil || c.es == nil {
		return nil
	}

	templateName := c.config.IndexPrefix + "-template"
	tpl := map[string]interface{}{
		"index_patterns": []string{c.config.IndexPrefix + "-*"},
		"template": map[string]interface{}{
			"settings": map[string]interface{}{
				"number_of_shards":   1,
				"number_of_replicas": 1,
			},
			"mappings": map[string]interface{}{
				"properties": map[string]interface{}{
					"kind":       map[string]string{"type": "keyword"},
					"category":   map[string]string{"type": "keyword"},
					"rule_id":    map[string]string{"type": "keyword"},
					"rule_name":  map[string]string{"type": "text"},
					"scope":      map[string]string{"type": "keyword"},
					"severity":   map[string]string{"type": "keyword"},
					"active":     map[string]string{"type": "boolean"},
					"in_app":     map[string]string{"type": "boolean"},
					"email":      map[string]string{"type": "boolean"},
					"created":    map[string]string{"type": "boolean"},
					"blocks":     map[string]string{"type": "integer"},
					"@timestamp": map[string]string{"type": "date"},
				},
			},
		},
	}

	body, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("failed to marshal index template: %w", err)
	}

	req := esapi.IndicesPutIndexTemplateRequest{
		Name: templateName,
		Body: bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("failed to create index template: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		logger.Warn("Failed to create index template", zap.String("template", templateName), zap.String("response", res.String()))
	} else {
		logger.Info("Index template created", zap.String("template", templateName))
	}
	return nil
}
