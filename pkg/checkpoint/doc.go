// Package checkpoint persists the removal run state between process restarts.
//
// The state is a small JSON document:
//
//	{
//	  "subIDs": [1324901, 1324453],
//	  "index": 1,
//	  "removedCount": 1,
//	  "dynamicCooldown": 60000,
//	  "version": 1,
//	  "updatedAt": "2024-01-03T10:00:00Z"
//	}
//
// with dynamicCooldown in milliseconds. It lives in the XDG data directory
// (~/.local/share/licensepurge/ on Linux) unless another path is configured.
//
// Writes go to a temporary file that is synced and renamed over the old one,
// so a crash never leaves a half-written state. A lock file next to the state
// keeps two processes from driving the same run.
package checkpoint
