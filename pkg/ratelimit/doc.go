// Package ratelimit paces outgoing storefront requests.
//
// The storefront throttles accounts that send requests too close together,
// so every request start is spaced at least a minimum interval after the
// previous one:
//
//	spacer := ratelimit.NewSpacer(time.Second)
//	spacer.Mark()
//	resp, err := client.Do(req)
//	delay := spacer.Remaining()
package ratelimit
