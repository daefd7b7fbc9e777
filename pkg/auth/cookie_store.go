package auth

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	cookieSessionID   = "sessionid"
	cookieLoginSecure = "steamLoginSecure"
	storeCookieDomain = "store.steampowered.com"
	httpOnlyPrefix    = "#HttpOnly_"
)

// CookieFileStore reads the session from a Netscape cookies.txt export, as
// written by browser "export cookies" extensions and curl. It is read-only.
type CookieFileStore struct {
	path   string
	domain string
	now    func() time.Time
}

// NewCookieFileStore creates a store over the cookies.txt file at path
func NewCookieFileStore(path string) *CookieFileStore {
	return &CookieFileStore{
		path:   path,
		domain: storeCookieDomain,
		now:    time.Now,
	}
}

// Store is not supported for cookie exports
func (c *CookieFileStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from the storefront cookies in the export
func (c *CookieFileStore) Retrieve(name string) (*Account, error) {
	cookies, modified, err := c.read()
	if err != nil {
		return nil, err
	}

	sessionID := cookies[cookieSessionID]
	if sessionID == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = DefaultAccountName
	}

	return &Account{
		Name:         name,
		SessionID:    sessionID,
		LoginSecure:  cookies[cookieLoginSecure],
		LastModified: modified,
	}, nil
}

// List returns the single account held by the export, if any
func (c *CookieFileStore) List() ([]*Account, error) {
	account, err := c.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for cookie exports
func (c *CookieFileStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if the export holds a session cookie
func (c *CookieFileStore) Exists(name string) bool {
	_, err := c.Retrieve(name)
	return err == nil
}

// read returns the unexpired cookies that apply to the storefront host
func (c *CookieFileStore) read() (map[string]string, time.Time, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, ErrCredentialsNotFound
		}
		return nil, time.Time{}, fmt.Errorf("failed to open cookies file: %w", err)
	}
	defer f.Close()

	var modified time.Time
	if info, err := f.Stat(); err == nil {
		modified = info.ModTime()
	}

	cookies := make(map[string]string)
	now := c.now()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		cookie, ok := parseCookieLine(scanner.Text())
		if !ok || !domainMatches(cookie.domain, c.domain) {
			continue
		}
		if cookie.expires > 0 && time.Unix(cookie.expires, 0).Before(now) {
			continue
		}
		cookies[cookie.name] = cookie.value
	}
	if err := scanner.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read cookies file: %w", err)
	}

	return cookies, modified, nil
}

type netscapeCookie struct {
	domain  string
	expires int64
	name    string
	value   string
}

// parseCookieLine parses one tab-separated cookies.txt line:
// domain, include-subdomains, path, secure, expiry, name, value
func parseCookieLine(line string) (netscapeCookie, bool) {
	line = strings.TrimRight(line, "\r")
	line = strings.TrimPrefix(line, httpOnlyPrefix)
	if line == "" || strings.HasPrefix(line, "#") {
		return netscapeCookie{}, false
	}

	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return netscapeCookie{}, false
	}

	expires, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return netscapeCookie{}, false
	}

	return netscapeCookie{
		domain:  fields[0],
		expires: expires,
		name:    fields[5],
		value:   fields[6],
	}, true
}

// domainMatches reports whether a cookie set for domain is sent to host
func domainMatches(domain, host string) bool {
	domain = strings.ToLower(domain)
	if strings.HasPrefix(domain, ".") {
		return host == domain[1:] || strings.HasSuffix(host, domain)
	}
	return host == domain
}
