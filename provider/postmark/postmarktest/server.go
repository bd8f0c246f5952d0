// Package postmarktest serves an in-memory subset of the Postmark
// template API for tests and dry runs.
package postmarktest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/interactive-solutions/go-template-publisher/internal"
)

const (
	codeInvalidToken     = 10
	codeInvalidRequest   = 300
	codeTemplateNotFound = 1101
)

type Template struct {
	TemplateId int64
	Name       string
	Subject    string
	HtmlBody   string
	TextBody   string
}

// Call is one request received by the server.
type Call struct {
	Method     string
	TemplateId string
	Request    internal.TemplateRequest
}

// Failure is returned in place of a normal response.
type Failure struct {
	Status    int
	ErrorCode int
	Message   string
}

type Server struct {
	*httptest.Server

	Token string

	mu        sync.Mutex
	nextId    int64
	templates map[int64]Template
	calls     []Call
	failures  map[string]Failure
}

// NewServer starts a server that accepts token. Created templates are
// numbered from firstId.
func NewServer(token string, firstId int64) *Server {
	s := &Server{
		Token:     token,
		nextId:    firstId,
		templates: make(map[int64]Template),
		failures:  make(map[string]Failure),
	}

	router := mux.NewRouter()
	router.HandleFunc("/templates", s.createTemplate).Methods(http.MethodPost)
	router.HandleFunc("/templates/{id}", s.getTemplate).Methods(http.MethodGet)
	router.HandleFunc("/templates/{id}", s.editTemplate).Methods(http.MethodPut)
	router.Use(s.authenticate)

	s.Server = httptest.NewServer(router)

	return s
}

// Seed stores a template as if it had been created earlier.
func (s *Server) Seed(tpl Template) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates[tpl.TemplateId] = tpl
	if tpl.TemplateId >= s.nextId {
		s.nextId = tpl.TemplateId + 1
	}
}

// FailNext makes the next request with method fail.
func (s *Server) FailNext(method string, failure Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[method] = failure
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Call(nil), s.calls...)
}

func (s *Server) Template(id int64) (Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tpl, ok := s.templates[id]
	return tpl, ok
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Postmark-Server-Token") != s.Token {
			writeError(w, http.StatusUnauthorized, codeInvalidToken, "Request does not contain a valid Server token.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) record(r *http.Request, body internal.TemplateRequest) (Failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{
		Method:     r.Method,
		TemplateId: mux.Vars(r)["id"],
		Request:    body,
	})

	failure, ok := s.failures[r.Method]
	if ok {
		delete(s.failures, r.Method)
	}

	return failure, ok
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	body := internal.TemplateRequest{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "Failed to parse incoming json")
		return
	}

	if failure, ok := s.record(r, body); ok {
		writeError(w, failure.Status, failure.ErrorCode, failure.Message)
		return
	}

	s.mu.Lock()
	tpl := Template{
		TemplateId: s.nextId,
		Name:       body.Name,
		Subject:    body.Subject,
		HtmlBody:   body.HtmlBody,
		TextBody:   body.TextBody,
	}
	s.templates[tpl.TemplateId] = tpl
	s.nextId++
	s.mu.Unlock()

	writeTemplate(w, tpl)
}

func (s *Server) editTemplate(w http.ResponseWriter, r *http.Request) {
	body := internal.TemplateRequest{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRequest, "Failed to parse incoming json")
		return
	}

	if failure, ok := s.record(r, body); ok {
		writeError(w, failure.Status, failure.ErrorCode, failure.Message)
		return
	}

	s.mu.Lock()
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	tpl, ok := s.templates[id]
	if ok {
		tpl.Name = body.Name
		tpl.Subject = body.Subject
		tpl.HtmlBody = body.HtmlBody
		tpl.TextBody = body.TextBody
		s.templates[id] = tpl
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusUnprocessableEntity, codeTemplateNotFound, "The Template's 'TemplateId' was not found.")
		return
	}

	writeTemplate(w, tpl)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	tpl, ok := s.Template(id)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, codeTemplateNotFound, "The Template's 'TemplateId' was not found.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tpl)
}

func writeTemplate(w http.ResponseWriter, tpl Template) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(internal.TemplateResponse{
		TemplateId: json.Number(strconv.FormatInt(tpl.TemplateId, 10)),
		Name:       tpl.Name,
		Active:     true,
	})
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(internal.ErrorResponse{
		ErrorCode: code,
		Message:   message,
	})
}
