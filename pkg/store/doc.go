// Package store is the HTTP client for the storefront account pages.
//
// It reuses an existing browser session: the sessionid cookie (and
// steamLoginSecure when available) is attached to every request, and the
// same sessionid is echoed in the removal form as the endpoint's CSRF check.
//
// Two operations are exposed:
//
//   - Remove posts to /account/removelicense and classifies the JSON reply
//     into a removal.Outcome; it never returns an error
//   - FetchLicensesPage downloads /account/licenses/ for scraping, retrying
//     transient failures
package store
