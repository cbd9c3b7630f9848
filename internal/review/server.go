package review

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Server serves the captured screenshots for review in a normal browser and
// pushes a refresh event whenever a new shot lands in the output directory.
type Server struct {
	dir string
	hub *hub
	log *slog.Logger
	mux *http.ServeMux
}

func NewServer(dir string, logger *slog.Logger) *Server {
	s := &Server{
		dir: dir,
		hub: newHub(logger),
		log: logger,
		mux: http.NewServeMux(),
	}
	s.routes()
	go s.hub.run()
	return s
}

func (s *Server) Router() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.serveIndex)
	s.mux.Handle("/shots/", http.StripPrefix("/shots/", http.FileServer(http.Dir(s.dir))))
	s.mux.HandleFunc("/api/shots", s.apiShots)
	s.mux.HandleFunc("/ws", s.hub.serveWS)
}

// shots lists the PNG files in the output directory, newest first.
func (s *Server) shots() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("read output dir", slog.String("err", err.Error()))
		return nil
	}
	type shot struct {
		name string
		mod  int64
	}
	var found []shot
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, shot{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].mod != found[j].mod {
			return found[i].mod > found[j].mod
		}
		return found[i].name < found[j].name
	})
	names := make([]string, 0, len(found))
	for _, f := range found {
		names = append(names, f.name)
	}
	return names
}

func (s *Server) apiShots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"shots": s.shots()})
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

// Watch broadcasts a refresh event whenever a PNG is created or rewritten
// in the output directory. It blocks until ctx is done.
func (s *Server) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 && strings.HasSuffix(ev.Name, ".png") {
				s.hub.broadcast <- marshalWS("refresh", filepath.Base(ev.Name))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", slog.String("err", err.Error()))
		}
	}
}

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Screenshot review</title>
<style>
	body { font-family: system-ui, sans-serif; margin: 1.5rem; background: #f4f4f2; }
	h1 { font-size: 1.1rem; }
	figure { margin: 0 0 2rem 0; }
	figcaption { font-size: .85rem; color: #555; margin-bottom: .4rem; }
	img { max-width: 100%; border: 1px solid #ccc; background: #fff; }
</style>
</head>
<body>
<h1>Screenshot review</h1>
<div id="shots"></div>
<script>
async function render() {
	const res = await fetch('/api/shots');
	const { shots } = await res.json();
	const root = document.getElementById('shots');
	root.innerHTML = '';
	for (const name of shots) {
		const fig = document.createElement('figure');
		const cap = document.createElement('figcaption');
		cap.textContent = name;
		const img = document.createElement('img');
		img.src = '/shots/' + name + '?t=' + Date.now();
		img.loading = 'lazy';
		fig.append(cap, img);
		root.append(fig);
	}
}
render();
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = () => render();
</script>
</body>
</html>
`
