// Package qr renders a join-link QR code for a group, the ambient
// convenience surfaced at GET /groups/{id}/qr alongside the spec's read
// endpoints.
package qr

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// size matches the teacher's fixed voter-QR dimension.
const size = 256

// JoinURL builds the group's join link from a base URL (already resolved
// to the configured frontend origin or a detected LAN address).
func JoinURL(baseURL, groupID string) string {
	return fmt.Sprintf("%s/groups/%s", strings.TrimSuffix(baseURL, "/"), groupID)
}

// EncodePNG renders url as a PNG QR code.
func EncodePNG(url string) ([]byte, error) {
	return qrcode.Encode(url, qrcode.Medium, size)
}
