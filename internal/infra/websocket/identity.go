package websocket

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
)

// ChargePointIDFromPath returns the final non-empty segment of an upgrade
// path, unescaped and NFC-normalised. A path without segments yields
// domain.DefaultChargePointID.
func ChargePointIDFromPath(path string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(seg); err == nil {
			seg = unescaped
		}
		seg = strings.TrimSpace(norm.NFC.String(seg))
		if seg == "" {
			continue
		}
		return seg
	}
	return domain.DefaultChargePointID
}
