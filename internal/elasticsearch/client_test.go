package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifyconsole/internal/config"
	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
	"notifyconsole/internal/template"
)

// fakeCluster answers the few endpoints the client calls.
type fakeCluster struct {
	mu    sync.Mutex
	paths []string
	docs  []AuditEntry
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)

	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"8.19.1"},"tagline":"You Know, for Search"}`)
	case r.Method == http.MethodPost && len(r.URL.Path) > 5 && r.URL.Path[len(r.URL.Path)-5:] == "/_doc":
		var e AuditEntry
		_ = json.NewDecoder(r.Body).Decode(&e)
		f.docs = append(f.docs, e)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case r.URL.Path == "/notification-audit-*/_search":
		resp := map[string]interface{}{"hits": map[string]interface{}{
			"total": map[string]interface{}{"value": len(f.docs)},
			"hits":  []map[string]interface{}{},
		}}
		for _, d := range f.docs {
			resp["hits"].(map[string]interface{})["hits"] = append(
				resp["hits"].(map[string]interface{})["hits"].([]map[string]interface{}),
				map[string]interface{}{"_source": d})
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	c, err := NewClient(config.ElasticsearchConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)

	assert.NoError(t, c.RecordChange(context.Background(), session.Change{}))
	assert.NoError(t, c.CreateIndexTemplate(context.Background()))
	res, err := c.SearchChanges(context.Background(), &SearchQuery{})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestNewAuditEntry(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	r, _ := rule.NewDraft(rule.CategoryAlert)
	r.ID, r.Name, r.Scope = "r7", "KPI bajo", "KPI"
	r.Template = template.DefaultTemplate()

	e := NewAuditEntry(session.Change{Kind: session.ChangeSaved, Category: rule.CategoryAlert, RuleID: "r7", Created: true, Rule: r, At: at})
	assert.Equal(t, "saved", e.Kind)
	assert.Equal(t, "alert", e.Category)
	assert.Equal(t, "KPI bajo", e.RuleName)
	assert.Equal(t, "high", e.Severity)
	assert.True(t, e.InApp)
	assert.Equal(t, len(r.Template.Blocks), e.Blocks)
	assert.Equal(t, time.UTC, e.Timestamp.Location())

	deleted := NewAuditEntry(session.Change{Kind: session.ChangeDeleted, Category: rule.CategoryEvent, RuleID: "r1", At: at})
	assert.Empty(t, deleted.RuleName)
	assert.Zero(t, deleted.Blocks)
}

func TestRecordAndSearch(t *testing.T) {
	cluster := &fakeCluster{}
	srv := httptest.NewServer(cluster)
	defer srv.Close()

	c, err := NewClient(config.ElasticsearchConfig{Enabled: true, Addresses: []string{srv.URL}, IndexPrefix: "notification-audit"})
	require.NoError(t, err)
	require.NotNil(t, c)

	at := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "notification-audit-2024.03.15", c.IndexName(at))

	ctx := context.Background()
	require.NoError(t, c.RecordChange(ctx, session.Change{Kind: session.ChangeDeleted, Category: rule.CategoryEvent, RuleID: "r1", At: at}))
	assert.Contains(t, cluster.paths, "POST /notification-audit-2024.03.15/_doc")
	require.Len(t, cluster.docs, 1)
	assert.Equal(t, "r1", cluster.docs[0].RuleID)

	res, err := c.SearchChanges(ctx, &SearchQuery{Category: "event"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "deleted", res.Hits[0].Kind)
}

func TestSearchBody(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	body := searchBody(&SearchQuery{RuleID: "r1", StartTime: &start, Size: 500})
	assert.Equal(t, 100, body["size"])

	must := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]map[string]interface{})
	require.Len(t, must, 2)

	body = searchBody(&SearchQuery{})
	assert.Equal(t, 20, body["size"])
}
