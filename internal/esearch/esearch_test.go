// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package esearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newESearchServer(t *testing.T, body string, status int, seen *url.Values) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if seen != nil {
			*seen = r.PostForm
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	orig := esearchBase
	esearchBase = ts.URL
	t.Cleanup(func() {
		esearchBase = orig
		ts.Close()
	})
	return ts
}

func TestSearch(t *testing.T) {
	var form url.Values
	ts := newESearchServer(t, `{
  "header": {"type": "esearch", "version": "0.3"},
  "esearchresult": {
    "count": "42", "retmax": "0", "retstart": "0",
    "querykey": "1", "webenv": "MCID_65f0c0ffee",
    "idlist": []
  }
}`, http.StatusOK, &form)

	c := &Client{HTTP: ts.Client(), UserAgent: "test/0.1", APIKey: "k123", Email: "lab@example.org"}
	h, err := c.Search(context.Background(), "pccompound", "1[uid] or 2[uid]")
	require.NoError(t, err)

	assert.Equal(t, "pccompound", h.Database)
	assert.Equal(t, "1", h.QueryKey)
	assert.Equal(t, "MCID_65f0c0ffee", h.WebEnv)
	assert.Equal(t, 42, h.Count)
	assert.True(t, h.Valid())

	assert.Equal(t, "pccompound", form.Get("db"))
	assert.Equal(t, "1[uid] or 2[uid]", form.Get("term"))
	assert.Equal(t, "y", form.Get("usehistory"))
	assert.Equal(t, "0", form.Get("retmax"))
	assert.Equal(t, "json", form.Get("retmode"))
	assert.Equal(t, "k123", form.Get("api_key"))
	assert.Equal(t, "lab@example.org", form.Get("email"))
}

func TestSearchMissingHistoryIsNotAnError(t *testing.T) {
	ts := newESearchServer(t, `{"esearchresult": {"count": "0", "idlist": []}}`, http.StatusOK, nil)

	c := &Client{HTTP: ts.Client()}
	h, err := c.Search(context.Background(), "pccompound", "nothing[uid]")
	require.NoError(t, err)
	assert.False(t, h.Valid())
	assert.Equal(t, 0, h.Count)
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"http error", `oops`, http.StatusInternalServerError},
		{"bad json", `{not json`, http.StatusOK},
		{"server error field", `{"esearchresult": {"ERROR": "Invalid db name"}}`, http.StatusOK},
		{"bad count", `{"esearchresult": {"count": "many"}}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newESearchServer(t, tt.body, tt.status, nil)
			c := &Client{HTTP: ts.Client()}
			_, err := c.Search(context.Background(), "pccompound", "x")
			assert.Error(t, err)
		})
	}
}
