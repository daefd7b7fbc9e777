package auth

import (
	"fmt"
	"strings"
)

// ShowCookieExtractionGuide prints step-by-step instructions for finding
// the storefront session cookies in a browser
func ShowCookieExtractionGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("STEAM SESSION COOKIE GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("Removing licenses reuses the session of a browser that is already")
	fmt.Println("logged in to the Steam store. Nothing else is needed.")
	fmt.Println()

	fmt.Println("STEP 1: Log in")
	fmt.Println("   - Go to https://store.steampowered.com/account/licenses/")
	fmt.Println("   - Make sure the licenses table is shown")
	fmt.Println()

	fmt.Println("STEP 2: Open Developer Tools")
	fmt.Println("   - Chrome/Edge/Brave/Firefox: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   - Safari: enable the Develop menu, then Cmd+Option+I")
	fmt.Println()

	fmt.Println("STEP 3: Open the cookie list")
	fmt.Println("   - 'Application' tab (Chrome) or 'Storage' tab (Firefox)")
	fmt.Println("   - Expand 'Cookies' and select https://store.steampowered.com")
	fmt.Println()

	fmt.Println("STEP 4: Copy these values")
	fmt.Println("   sessionid          24 hex characters, required")
	fmt.Println("   steamLoginSecure   long value starting with your SteamID, recommended")
	fmt.Println()

	fmt.Println("ALTERNATIVE: export cookies.txt")
	fmt.Println("   A Netscape cookies.txt export can be used directly with")
	fmt.Println("   --cookies-file or store.cookies_file in the config.")
	fmt.Println()

	fmt.Println("SECURITY WARNING:")
	fmt.Println("   - These cookies give full access to your Steam account")
	fmt.Println("   - Never share them; they are stored encrypted by this tool")
	fmt.Println("   - Logging out of the browser invalidates them")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide() {
	fmt.Println("\nQuick guide: F12 -> Application/Storage -> Cookies -> store.steampowered.com")
	fmt.Println("   Need: sessionid (and steamLoginSecure)")
	fmt.Println("   Type 'help' for detailed instructions")
}
