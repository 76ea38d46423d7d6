package restconf

import "strings"

// FindDeviceIdInUrl extracts a device identifier from a /restconf/ base URL
// of the form ".../restconf/<device-id>/data/", used by the RESTCONF client
// (package client) to label a remote endpoint when proxying multiple
// devices behind one gateway. Returns "" when the URL carries no such
// segment.
func FindDeviceIdInUrl(rawURL string) string {
	parts := strings.Split(strings.Trim(rawURL, "/"), "/")
	for i, p := range parts {
		if p == "restconf" && i+1 < len(parts) {
			next := parts[i+1]
			if next != "data" && next != "operations" && next != "ds" && next != "yang-library-version" {
				return next
			}
		}
	}
	return ""
}
