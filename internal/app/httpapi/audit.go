package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/framestore/pkg/logger"
)

// AuditEntry records one mutating request.
type AuditEntry struct {
	Time       time.Time `json:"time"`
	TraceID    string    `json:"trace_id,omitempty"`
	User       string    `json:"user,omitempty"`
	Method     string    `json:"method"`
	Route      string    `json:"route"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// AuditSink persists audit entries.
type AuditSink interface {
	Write(entry AuditEntry) error
}

// AuditLog keeps the most recent entries in memory and forwards each one to
// an optional sink.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	max     int
	sink    AuditSink
	log     *logger.Logger
	now     func() time.Time
}

// NewAuditLog retains up to max entries. A nil sink keeps entries in memory
// only.
func NewAuditLog(max int, sink AuditSink, log *logger.Logger) *AuditLog {
	if max <= 0 {
		max = 200
	}
	if log == nil {
		log = logger.NewDefault("audit")
	}
	return &AuditLog{max: max, sink: sink, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (l *AuditLog) add(entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.sink != nil {
		if err := l.sink.Write(entry); err != nil {
			l.log.WithError(err).WithField("path", entry.Path).Warn("audit sink write failed")
		}
	}
}

// Recent returns up to limit of the newest entries, oldest first.
func (l *AuditLog) Recent(limit int) []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]AuditEntry, limit)
	copy(out, l.entries[len(l.entries)-limit:])
	return out
}

// Middleware records every request that is not a GET, HEAD or OPTIONS.
func (l *AuditLog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		l.add(AuditEntry{
			Time:       l.now(),
			TraceID:    logger.TraceID(r.Context()),
			User:       logger.UserID(r.Context()),
			Method:     r.Method,
			Route:      route,
			Path:       r.URL.Path,
			Status:     rec.status,
			RemoteAddr: remoteIP(r),
			UserAgent:  r.UserAgent(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// FileAuditSink appends audit entries as JSONL.
type FileAuditSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileAuditSink opens path for appending. An empty path returns nil.
func NewFileAuditSink(path string) (*FileAuditSink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileAuditSink{file: f}, nil
}

func (s *FileAuditSink) Write(entry AuditEntry) error {
	if s == nil || s.file == nil {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

// Close closes the underlying file.
func (s *FileAuditSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}
