package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorFetchReplacesSnapshot(t *testing.T) {
	page := listResponse{Records: []Record{
		{ID: "rec1", Fields: map[string]any{"Name": "A", "Email": "a@example.com", "Intent Score": float64(90), "Quality Score": float64(80)}},
		{ID: "rec2", Fields: map[string]any{"Name": "B"}}, // missing email, skipped
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseID: "app", BaseURL: srv.URL})
	client.SetHTTPClient(srv.Client())

	c := NewCollector(client, "Buyers", time.Hour, 100)
	c.fetch(context.Background())

	buyers := c.Buyers()
	require.Len(t, buyers, 1, "unmappable record must be skipped, not fail the snapshot")
	assert.Equal(t, "rec1", buyers[0].ID)

	b, ok := c.Buyer("rec1")
	require.True(t, ok)
	assert.Equal(t, 90, b.IntentScore)

	_, ok = c.Buyer("rec2")
	assert.False(t, ok)

	status := c.GetStatus()
	assert.Equal(t, 1, status.Count)
	assert.Empty(t, status.LastError)
	assert.False(t, status.LastFetch.IsZero())
}

func TestCollectorFetchErrorRetainsOldSnapshot(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"type":"BAD","message":"boom"}}`))
			return
		}
		json.NewEncoder(w).Encode(listResponse{Records: []Record{
			{ID: "rec1", Fields: map[string]any{"Name": "A", "Email": "a@example.com"}},
		}})
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseID: "app", BaseURL: srv.URL})
	client.SetHTTPClient(srv.Client())
	c := NewCollector(client, "Buyers", time.Hour, 100)

	c.fetch(context.Background())
	require.Len(t, c.Buyers(), 1)

	healthy = false
	c.fetch(context.Background())

	assert.Len(t, c.Buyers(), 1, "failed poll must not clear the last good snapshot")
	assert.NotEmpty(t, c.GetStatus().LastError)
}

func TestCollectorSnapshotPersistAndRestore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listResponse{Records: []Record{
			{ID: "rec1", Fields: map[string]any{"Name": "A", "Email": "a@example.com"}},
		}})
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseID: "app", BaseURL: srv.URL})
	client.SetHTTPClient(srv.Client())

	c1 := NewCollector(client, "Buyers", time.Hour, 100)
	c1.SetRedisClient(redisClient)
	c1.fetch(context.Background())
	require.Len(t, c1.Buyers(), 1)

	// A fresh collector (simulating a restart) restores the snapshot
	// without touching the API.
	c2 := NewCollector(client, "Buyers", time.Hour, 100)
	c2.SetRedisClient(redisClient)
	c2.loadSnapshot(context.Background())

	buyers := c2.Buyers()
	require.Len(t, buyers, 1)
	assert.Equal(t, "rec1", buyers[0].ID)
	assert.False(t, c2.GetStatus().LastFetch.IsZero())
}

func TestCollectorStartStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listResponse{})
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseID: "app", BaseURL: srv.URL})
	client.SetHTTPClient(srv.Client())
	c := NewCollector(client, "Buyers", time.Hour, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	assert.True(t, c.GetStatus().Running)

	c.Stop()
	assert.False(t, c.GetStatus().Running)
	// Double stop must not panic.
	c.Stop()
}
