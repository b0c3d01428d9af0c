package memory

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// pointNamespace seeds name-based point ids for project ids that have no
// natural 128-bit form.
var pointNamespace = uuid.MustParse("6f1c1a52-3d0e-4b8e-9a57-1f0e5c2d9b41")

// PointID derives the UUID-shaped vector index identifier for a project id.
// The mapping is pure: the same id always yields the same point id.
//
//   - ULIDs keep their 128 bits.
//   - UUIDs are returned in canonical form.
//   - 24-character hex ids are zero-padded to 32 hex digits.
//   - Anything else gets a SHA-1 name-based UUID.
func PointID(projectID string) string {
	if id, err := ulid.ParseStrict(projectID); err == nil {
		return uuid.UUID(id).String()
	}
	if id, err := uuid.Parse(projectID); err == nil && len(projectID) == 36 {
		return id.String()
	}
	if len(projectID) == 24 {
		if _, err := hex.DecodeString(projectID); err == nil {
			padded := strings.ToLower(projectID) + strings.Repeat("0", 8)
			return uuid.MustParse(padded).String()
		}
	}
	return uuid.NewSHA1(pointNamespace, []byte(projectID)).String()
}
