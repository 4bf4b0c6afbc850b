package main

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/rapier/internal/config"
)

const testPage = `<html><body>
<ul id="list" data-hr-model="items"><template><li>{{name}}</li></template></ul>
<template data-hr-component="card"><p>{{title}}</p><template data-hr-variant="loud"><p><b>{{title}}</b></p></template></template>
</body></html>`

func writeFixture(t *testing.T) (pagePath, dataPath string) {
	t.Helper()
	dir := t.TempDir()
	pagePath = filepath.Join(dir, "index.html")
	dataPath = filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(pagePath, []byte(testPage), 0644))
	require.NoError(t, os.WriteFile(dataPath, []byte("title: hello\nitems:\n  - name: a\n  - name: b\n"), 0644))
	return pagePath, dataPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	pagePath, dataPath := writeFixture(t)

	out, err := execute(t, "render", pagePath, "--data", dataPath)
	require.NoError(t, err)
	assert.Contains(t, out, "<li>a</li><li>b</li>")
	assert.NotContains(t, out, "<template")

	out, err = execute(t, "render", pagePath, "--data", dataPath, "--component", "card", "--variant", "loud")
	require.NoError(t, err)
	assert.Equal(t, "<p><b>hello</b></p>", out)

	_, err = execute(t, "render", pagePath, "--component", "missing")
	assert.Error(t, err)
}

func TestExprCommand(t *testing.T) {
	_, dataPath := writeFixture(t)

	out, err := execute(t, "expr", "title == 'hello' && items", "--data", dataPath)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = execute(t, "expr", "a.b", "--ast")
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "MemberExpression"`)
	assert.Contains(t, out, `"name": "b"`)

	_, err = execute(t, "expr", "a +")
	assert.Error(t, err)

	_, err = execute(t, "expr", "a | b")
	assert.Error(t, err)
}

func TestComponentsCommand(t *testing.T) {
	pagePath, _ := writeFixture(t)

	out, err := execute(t, "components", pagePath)
	require.NoError(t, err)
	assert.Contains(t, out, "card")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "hr.autocomponent.1")
}

func TestInjectReloadScript(t *testing.T) {
	out := string(injectReloadScript([]byte("<html><body><p>x</p></body></html>")))
	assert.True(t, strings.HasSuffix(out, reloadScript+"</body></html>"))

	out = string(injectReloadScript([]byte("<p>x</p>")))
	assert.Equal(t, "<p>x</p>"+reloadScript, out)
}

func TestDevServer(t *testing.T) {
	pagePath, dataPath := writeFixture(t)
	cfg := config.DefaultConfig()
	cfg.Dev.Data = dataPath
	server := newDevServer(cfg, pagePath)

	ts := httptest.NewServer(server.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<li>a</li><li>b</li>")
	assert.Contains(t, string(body), reloadPath)

	resp, err = http.Get(ts.URL + "/data.yaml")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/favicon.ico")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + reloadPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "HELLO"}))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ACK", msg["type"])
	require.Equal(t, 1, server.clientCount())

	server.handleFileChanges([]fsnotify.Event{{Name: pagePath, Op: fsnotify.Write}})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "RELOAD", msg["type"])

	// A broken data file is reported instead of reloading
	require.NoError(t, os.WriteFile(dataPath, []byte("items: [\n"), 0644))
	server.handleFileChanges([]fsnotify.Event{{Name: dataPath, Op: fsnotify.Write}})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ERROR", msg["type"])
}

func TestIsRelevantFile(t *testing.T) {
	assert.True(t, isRelevantFile("page.HTML"))
	assert.True(t, isRelevantFile("data.yml"))
	assert.False(t, isRelevantFile("main.go"))
}

func TestDevServerShutdownLogsFailure(t *testing.T) {
	var logs bytes.Buffer
	server := newDevServer(config.DefaultConfig(), "index.html")
	server.log = slog.New(slog.NewTextHandler(&logs, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	})}
	go srv.Serve(ln)
	defer srv.Close()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-started

	// The request is still running, so shutdown cannot finish in time
	server.shutdown(srv, time.Nanosecond)
	close(release)

	assert.Contains(t, logs.String(), "dev server shutdown failed")
	assert.Contains(t, logs.String(), "context deadline exceeded")
}
