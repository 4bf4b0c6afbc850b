package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/recera/rapier/cmd/rapier/internal/ui"
	"github.com/recera/rapier/internal/config"
)

const reloadPath = "/rapier/reload"

const reloadScript = `<script>(function(){
var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "` + reloadPath + `");
ws.onopen = function(){ ws.send(JSON.stringify({type: "HELLO"})); };
ws.onmessage = function(e){
  var msg = JSON.parse(e.data);
  if (msg.type === "RELOAD") { location.reload(); }
  if (msg.type === "ERROR") { console.error("rapier: " + msg.message); }
};
})();</script>`

type devServer struct {
	pagePath  string
	dataPath  string
	config    *config.Config
	log       *slog.Logger
	watcher   *fsnotify.Watcher
	wsClients map[*websocket.Conn]bool
	wsMutex   sync.RWMutex
	upgrader  websocket.Upgrader

	renderMutex sync.Mutex
}

func newDevCommand(flags *globalFlags) *cobra.Command {
	var port int
	var host string
	var dataPath string

	cmd := &cobra.Command{
		Use:   "dev <page.html>",
		Short: "Serve a page with live reload",
		Long: `Serves the rendered page, re-rendering it on every request and reloading
connected browsers when the page, its data or its assets change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				slog.Warn("failed to load config, using defaults", "error", err)
				cfg = config.DefaultConfig()
			}

			// CLI takes precedence
			if port != 0 {
				cfg.Dev.Port = port
			}
			if host != "" {
				cfg.Dev.Host = host
			}
			if dataPath != "" {
				cfg.Dev.Data = dataPath
			}
			return runDev(cmd, newDevServer(cfg, args[0]))
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run the dev server on")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind the dev server to")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "JSON or YAML data file bound into the page")

	return cmd
}

func newDevServer(cfg *config.Config, pagePath string) *devServer {
	return &devServer{
		pagePath:  pagePath,
		dataPath:  cfg.Dev.Data,
		config:    cfg,
		log:       slog.Default().With("component", "dev"),
		wsClients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins in dev mode
				return true
			},
		},
	}
}

func runDev(cmd *cobra.Command, server *devServer) error {
	if _, err := server.render(); err != nil {
		return fmt.Errorf("initial render failed: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	server.watcher = watcher

	if err := server.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	go server.watchFiles()

	addr := server.config.Addr()
	srv := &http.Server{
		Addr:    addr,
		Handler: server.routes(),
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Dev server running at http://%s", addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("Shutting down dev server..."))
		server.shutdown(srv, 5*time.Second)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdown stops srv, giving in-flight requests up to timeout to finish
func (s *devServer) shutdown(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.log.Error("dev server shutdown failed", "error", err)
	}
}

func (s *devServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(reloadPath, s.handleWebSocket)
	mux.HandleFunc("/favicon.ico", s.serveFavicon)
	mux.HandleFunc("/", s.servePage)
	return mux
}

// render parses the page afresh, binds the data file and injects the reload
// client
func (s *devServer) render() ([]byte, error) {
	s.renderMutex.Lock()
	defer s.renderMutex.Unlock()

	p, err := renderPage(s.config, s.pagePath, s.dataPath)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return nil, err
	}
	return injectReloadScript(buf.Bytes()), nil
}

// injectReloadScript places the reload client before </body>, or at the end
// when the document has no closing body tag
func injectReloadScript(doc []byte) []byte {
	idx := bytes.LastIndex(doc, []byte("</body>"))
	if idx < 0 {
		return append(doc, reloadScript...)
	}
	out := make([]byte, 0, len(doc)+len(reloadScript))
	out = append(out, doc[:idx]...)
	out = append(out, reloadScript...)
	return append(out, doc[idx:]...)
}

func (s *devServer) servePage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path != "/" && path != "/"+filepath.Base(s.pagePath) {
		s.serveStatic(w, r)
		return
	}

	content, err := s.render()
	if err != nil {
		s.log.Error("render failed", "page", s.pagePath, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(content)
}

func (s *devServer) serveStatic(w http.ResponseWriter, r *http.Request) {
	// Security: prevent directory traversal
	if strings.Contains(r.URL.Path, "..") {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	filePath := filepath.Join(filepath.Dir(s.pagePath), filepath.FromSlash(strings.TrimPrefix(r.URL.Path, "/")))
	if _, err := os.Stat(filePath); err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, filePath)
}

// serveFavicon serves a favicon next to the page if present, otherwise
// returns 204 to avoid noisy 404s
func (s *devServer) serveFavicon(w http.ResponseWriter, r *http.Request) {
	icon := filepath.Join(filepath.Dir(s.pagePath), "favicon.ico")
	if _, err := os.Stat(icon); err == nil {
		http.ServeFile(w, r, icon)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *devServer) setupWatcher() error {
	dirs := map[string]bool{filepath.Dir(s.pagePath): true}
	if s.dataPath != "" && s.dataPath != "-" {
		dirs[filepath.Dir(s.dataPath)] = true
	}
	for dir := range dirs {
		if err := s.watcher.Add(dir); err != nil {
			return err
		}
	}
	return nil
}

func (s *devServer) watchFiles() {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	var pendingEvents []fsnotify.Event

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !isRelevantFile(event.Name) {
				continue
			}
			pendingEvents = append(pendingEvents, event)
			debounce.Reset(100 * time.Millisecond)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", "error", err)

		case <-debounce.C:
			events := pendingEvents
			pendingEvents = nil
			if len(events) > 0 {
				s.handleFileChanges(events)
			}
		}
	}
}

func isRelevantFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".json", ".yaml", ".yml", ".css", ".js":
		return true
	}
	return false
}

func (s *devServer) handleFileChanges(events []fsnotify.Event) {
	names := make([]string, 0, len(events))
	for _, event := range events {
		names = append(names, filepath.Base(event.Name))
	}
	s.log.Debug("files changed", "files", names)

	if _, err := s.render(); err != nil {
		s.log.Error("render failed", "page", s.pagePath, "error", err)
		s.notifyClients("error", map[string]any{
			"message": fmt.Sprintf("Render failed: %v", err),
		})
		return
	}
	s.log.Info("page re-rendered, reloading", "clients", s.clientCount())
	s.notifyClients("reload", map[string]any{
		"files": names,
	})
}

func (s *devServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
	}()

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("websocket error", "error", err)
			}
			break
		}

		switch msg["type"] {
		case "HELLO":
			s.wsMutex.Lock()
			err := conn.WriteJSON(map[string]any{"type": "ACK"})
			s.wsMutex.Unlock()
			if err != nil {
				return
			}
		default:
			s.log.Debug("unknown websocket message", "type", msg["type"])
		}
	}
}

func (s *devServer) clientCount() int {
	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()
	return len(s.wsClients)
}

// notifyClients broadcasts a message to every connected browser. Writes
// hold the exclusive lock since a connection allows one writer at a time.
func (s *devServer) notifyClients(msgType string, data map[string]any) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	message := map[string]any{
		"type": strings.ToUpper(msgType),
	}
	for k, v := range data {
		message[k] = v
	}

	for client := range s.wsClients {
		if err := client.WriteJSON(message); err != nil {
			s.log.Warn("failed to send message to client", "error", err)
		}
	}
}
