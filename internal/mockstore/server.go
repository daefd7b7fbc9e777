// Package mockstore is a fake storefront for tests. It serves a licenses
// page for a fixed session and answers removal requests either from a
// per-package script or by actually dropping the license.
package mockstore

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// License is one row of the licenses page
type License struct {
	ID   int
	Name string
}

// Reply is a canned response to a removal request
type Reply struct {
	Status int
	Body   string
}

// JSONReply answers with {"success": code}
func JSONReply(code int) Reply {
	return Reply{Status: http.StatusOK, Body: fmt.Sprintf(`{"success":%d}`, code)}
}

// HTMLReply answers with a 200 HTML page, as the storefront does for
// logged-out sessions
func HTMLReply(body string) Reply {
	return Reply{Status: http.StatusOK, Body: body}
}

// StatusReply answers with an empty body and status
func StatusReply(status int) Reply {
	return Reply{Status: status}
}

// RemoveRequest records one call to the removal endpoint
type RemoveRequest struct {
	PackageID       int
	FormSessionID   string
	CookieSessionID string
	LoginSecure     string
	RequestedWith   string
	Referer         string
}

// Server simulates the storefront account endpoints
type Server struct {
	server *httptest.Server

	mu           sync.Mutex
	sessionID    string
	licenses     []License
	scripts      map[int][]Reply
	requests     []RemoveRequest
	pageHits     int
	pageFailures []int
}

// New starts a fake storefront that accepts sessionID
func New(sessionID string, licenses ...License) *Server {
	s := &Server{
		sessionID: sessionID,
		licenses:  append([]License(nil), licenses...),
		scripts:   make(map[int][]Reply),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/account/licenses/", s.handleLicenses)
	mux.HandleFunc("/account/removelicense", s.handleRemove)
	mux.HandleFunc("/login/", s.handleLogin)

	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the server's base URL
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// Script queues replies for removals of id, consumed in order. Once the
// queue is empty the default behaviour resumes.
func (s *Server) Script(id int, replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[id] = append(s.scripts[id], replies...)
}

// FailPage makes the next licenses page requests answer with the given
// statuses, one per request
func (s *Server) FailPage(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageFailures = append(s.pageFailures, statuses...)
}

// Licenses returns the licenses still on the account
func (s *Server) Licenses() []License {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]License(nil), s.licenses...)
}

// Requests returns every removal request received
func (s *Server) Requests() []RemoveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RemoveRequest(nil), s.requests...)
}

// PageHits returns how often the licenses page was requested
func (s *Server) PageHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageHits
}

func (s *Server) authorized(r *http.Request) bool {
	c, err := r.Cookie("sessionid")
	return err == nil && c.Value == s.sessionID
}

func (s *Server) handleLicenses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageHits++

	if len(s.pageFailures) > 0 {
		status := s.pageFailures[0]
		s.pageFailures = s.pageFailures[1:]
		w.WriteHeader(status)
		return
	}

	if !s.authorized(r) {
		http.Redirect(w, r, "/login/?redir=account%2Flicenses%2F", http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html><html><head><title>Licenses and product key activations</title></head><body>`)
	fmt.Fprint(w, `<table class="account_table"><tr><th>Date</th><th>Item</th><th>Acquisition method</th></tr>`)
	for _, l := range s.licenses {
		name := html.EscapeString(l.Name)
		fmt.Fprintf(w, `<tr><td class="license_date_col">1 Jan, 2024</td><td><div class="free_license_remove_link">`+
			`<a href="javascript:RemoveFreeLicense( %d, &#39;%s&#39; );">Remove</a></div>%s</td><td>Complimentary</td></tr>`,
			l.ID, name, name)
	}
	fmt.Fprint(w, `</table></body></html>`)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id, err := strconv.Atoi(r.PostForm.Get("packageid"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	req := RemoveRequest{
		PackageID:     id,
		FormSessionID: r.PostForm.Get("sessionid"),
		RequestedWith: r.Header.Get("X-Requested-With"),
		Referer:       r.Header.Get("Referer"),
	}
	if c, err := r.Cookie("sessionid"); err == nil {
		req.CookieSessionID = c.Value
	}
	if c, err := r.Cookie("steamLoginSecure"); err == nil {
		req.LoginSecure = c.Value
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	if queue := s.scripts[id]; len(queue) > 0 {
		reply := queue[0]
		s.scripts[id] = queue[1:]
		if reply.Status != http.StatusOK || reply.Body == "" {
			w.WriteHeader(reply.Status)
		}
		fmt.Fprint(w, reply.Body)
		return
	}

	if !s.authorized(r) || req.FormSessionID != s.sessionID {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, loginPage)
		return
	}

	code := 8
	for i, l := range s.licenses {
		if l.ID == id {
			s.licenses = append(s.licenses[:i], s.licenses[i+1:]...)
			code = 1
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"success": code})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, loginPage)
}

const loginPage = `<!DOCTYPE html>
<html><head><title>Sign In</title></head>
<body><div class="login_form">Sign in to your Steam account</div></body></html>`
