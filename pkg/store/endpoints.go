package store

import "strings"

const (
	// DefaultBaseURL is the storefront origin
	DefaultBaseURL = "https://store.steampowered.com"

	// LicensesPath lists the account's licenses
	LicensesPath = "/account/licenses/"

	// RemoveLicensePath removes one free license
	RemoveLicensePath = "/account/removelicense"

	// LoginPath is where logged-out sessions are redirected
	LoginPath = "/login"
)

// Response codes of the removal endpoint's "success" field
const (
	CodeSuccess     = 1
	CodeUndefinedID = 8
)

// LicensesURL returns the licenses page URL under baseURL
func LicensesURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + LicensesPath
}

// RemoveLicenseURL returns the removal endpoint URL under baseURL
func RemoveLicenseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + RemoveLicensePath
}
