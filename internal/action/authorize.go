package action

import (
	"encoding/json"
	"strings"

	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

// Authorization statuses.
const (
	AuthorizationAccepted = "Accepted"
	AuthorizationBlocked  = "Blocked"
	AuthorizationExpired  = "Expired"
	AuthorizationInvalid  = "Invalid"
)

type AuthorizeRequest struct {
	IdTag *string `json:"idTag"`
}

type AuthorizeResponse struct {
	IdTagInfo IdTagInfo `json:"idTagInfo"`
}

// IdTagStatus decides an idTag by prefix. There is no tag store;
// BLOCKED*, EXPIRED* and INVALID* tags are refused and everything else is accepted.
func IdTagStatus(idTag string) string {
	switch {
	case strings.HasPrefix(idTag, "BLOCKED"):
		return AuthorizationBlocked
	case strings.HasPrefix(idTag, "EXPIRED"):
		return AuthorizationExpired
	case strings.HasPrefix(idTag, "INVALID"):
		return AuthorizationInvalid
	default:
		return AuthorizationAccepted
	}
}

// Authorize checks an idTag presented at the charge point.
func (h *Handlers) Authorize(s *session.Session, payload json.RawMessage) (ocpp.Message, error) {
	var req AuthorizeRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	idTag, err := requiredString("idTag", req.IdTag)
	if err != nil {
		return nil, err
	}

	status := IdTagStatus(idTag)
	s.Logger().Info().Str("id_tag", idTag).Str("status", status).Msg("authorize")

	return result(s, AuthorizeResponse{IdTagInfo: IdTagInfo{Status: status}})
}
