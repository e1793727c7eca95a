package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marcopiovanello/m3u8-dl/server/config"
	"github.com/marcopiovanello/m3u8-dl/server/internal"
	"github.com/marcopiovanello/m3u8-dl/server/sys"
)

type Status struct {
	Tool        string                  `json:"tool"`
	ToolVersion string                  `json:"tool_version"`
	ToolError   string                  `json:"tool_error,omitempty"`
	SaveDir     string                  `json:"save_dir"`
	FreeSpace   uint64                  `json:"free_space"`
	Tasks       map[internal.Status]int `json:"tasks"`
}

// TaskLister is satisfied by the orchestrator.
type TaskLister interface {
	Tasks() []internal.TaskSnapshot
}

type Service struct {
	cfg   *config.Config
	tasks TaskLister

	resolve func(string) (string, error)
	version func(context.Context, string) (string, error)
}

func New(cfg *config.Config, tasks TaskLister) *Service {
	return &Service{
		cfg:     cfg,
		tasks:   tasks,
		resolve: sys.ResolveTool,
		version: sys.ToolVersion,
	}
}

func (s *Service) Status(ctx context.Context) Status {
	settings := s.cfg.Settings()

	res := Status{
		SaveDir: settings.SaveDir,
		Tasks:   make(map[internal.Status]int),
	}

	for _, t := range s.tasks.Tasks() {
		res.Tasks[t.Status]++
	}

	if free, err := sys.FreeSpace(settings.SaveDir); err == nil {
		res.FreeSpace = free
	}

	tool, err := s.resolve(settings.ToolPath)
	if err != nil {
		res.ToolError = err.Error()
		return res
	}
	res.Tool = tool

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if v, err := s.version(ctx, tool); err == nil {
		res.ToolVersion = v
	} else {
		res.ToolError = err.Error()
	}

	return res
}

func (s *Service) handle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Status(r.Context())); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func ApplyRouter(s *Service) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", s.handle())
	}
}
