package pagetext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>Prize Desk</title>
	<style>body { color: red; }</style>
	<script>console.log("tracking");</script>
</head>
<body>
	<h1>Congratulations,   you   won!</h1>
	<p>Claim your prize <a href="/claim">here</a>.</p>
	<noscript>Please enable JavaScript.</noscript>
</body>
</html>`

func TestExtractStripsNonVisibleContent(t *testing.T) {
	text, err := Extract(strings.NewReader(samplePage))
	require.NoError(t, err)

	assert.Equal(t, "Congratulations, you won! Claim your prize here.", text)
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "enable JavaScript")
}

func TestExtractHandlesFragmentWithoutBody(t *testing.T) {
	text, err := Extract(strings.NewReader("<p>just a fragment</p>"))
	require.NoError(t, err)
	assert.Equal(t, "just a fragment", text)
}

func TestFetchExtractsRemotePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	text, err := Fetch(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Claim your prize")
}

func TestFetchRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL)
	assert.Error(t, err)
}
