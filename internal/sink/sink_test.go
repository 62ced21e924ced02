package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/repowatch/repowatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_PostsReportWithToken(t *testing.T) {
	var got Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ScansPath, r.URL.Path)
		assert.Equal(t, "Bearer s3cr3t", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true,"id":"abc","totals":{"scans":4,"findings":9,"by_severity":{"high":2}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "s3cr3t")
	ack, err := c.Submit(context.Background(), Report{
		Repo:     "acme/web",
		Source:   types.SourceGitHub,
		Findings: []types.Finding{{Rule: "jwt", Path: "a.js", Line: 2, Severity: types.SevHigh}},
	})
	require.NoError(t, err)
	assert.True(t, ack.OK)
	assert.Equal(t, "abc", ack.ID)
	assert.Equal(t, 4, ack.Totals.Scans)
	assert.Equal(t, 2, ack.Totals.BySeverity[types.SevHigh])

	assert.Equal(t, "acme/web", got.Repo)
	assert.Equal(t, "repowatch", got.Tool)
	assert.Equal(t, SchemaVersion, got.Schema)
	assert.False(t, got.Timestamp.IsZero())
	require.Len(t, got.Findings, 1)
}

func TestSubmit_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"ok":true,"id":"x"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Submit(context.Background(), Report{Repo: "r", Source: types.SourceLocal})
	require.NoError(t, err)
}

func TestSubmit_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error":"invalid source"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Submit(context.Background(), Report{Repo: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source")
}

func TestSubmit_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, "").Submit(context.Background(), Report{Repo: "r"})
	assert.Error(t, err)
}

func TestSubmit_NoURL(t *testing.T) {
	_, err := New("", "").Submit(context.Background(), Report{})
	assert.Error(t, err)
}
