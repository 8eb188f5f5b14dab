package domain

import (
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

// CollectionKey identifies a user's logical collection. The two parts are
// never joined by plain concatenation, so names containing separators cannot
// collide.
type CollectionKey struct {
	UserID       string `json:"user_id"`
	CollectionID string `json:"collection_id"`
}

func (k CollectionKey) Validate() error {
	if strings.TrimSpace(k.UserID) == "" {
		return WrapError(ErrInvalidInput, "validate collection key", errors.New("user id is required"))
	}
	if strings.TrimSpace(k.CollectionID) == "" {
		return WrapError(ErrInvalidInput, "validate collection key", errors.New("collection id is required"))
	}
	return nil
}

// PhysicalName is the per-user vector collection that holds every logical
// collection of that user.
func (k CollectionKey) PhysicalName() string {
	if isSafeIdentifier(k.UserID) {
		return "user_" + k.UserID
	}
	return "userx_" + hex.EncodeToString([]byte(k.UserID))
}

// String is an escaped, reversible form used for cache keys and logs.
func (k CollectionKey) String() string {
	return url.PathEscape(k.UserID) + "/" + url.PathEscape(k.CollectionID)
}

func ParseCollectionKey(raw string) (CollectionKey, error) {
	userPart, collectionPart, ok := strings.Cut(raw, "/")
	if !ok {
		return CollectionKey{}, WrapError(ErrInvalidInput, "parse collection key", errors.New("missing separator"))
	}
	userID, err := url.PathUnescape(userPart)
	if err != nil {
		return CollectionKey{}, WrapError(ErrInvalidInput, "parse collection key", err)
	}
	collectionID, err := url.PathUnescape(collectionPart)
	if err != nil {
		return CollectionKey{}, WrapError(ErrInvalidInput, "parse collection key", err)
	}
	key := CollectionKey{UserID: userID, CollectionID: collectionID}
	return key, key.Validate()
}

func isSafeIdentifier(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
