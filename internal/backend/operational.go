package backend

import (
	"time"

	"github.com/google/uuid"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// Operational attribute names.
const (
	// AttrCreateTimestamp is the creation timestamp of an entry.
	AttrCreateTimestamp = "createTimestamp"
	// AttrModifyTimestamp is the last modification timestamp of an entry.
	AttrModifyTimestamp = "modifyTimestamp"
	// AttrCreatorsName is the DN of the entry creator.
	AttrCreatorsName = "creatorsName"
	// AttrModifiersName is the DN of the last modifier.
	AttrModifiersName = "modifiersName"
	// AttrEntryUUID is the unique identifier of the entry (RFC 4530).
	AttrEntryUUID = "entryUUID"
	// AttrEntryDN is the pseudo attribute naming the DN of an entry. As a
	// reindex target it selects the DN tree format upgrade.
	AttrEntryDN = "entryDN"
)

// StampOperational fills the operational attributes a bulk load adds to
// entries that do not carry them yet. Values already present, for example
// from an export of another server, are kept.
func StampOperational(e *storage.Entry, creator string, now time.Time) {
	if e == nil {
		return
	}
	ts := FormatTimestamp(now)

	setDefault(e, AttrEntryUUID, GenerateUUID())
	setDefault(e, AttrCreateTimestamp, ts)
	setDefault(e, AttrModifyTimestamp, ts)
	if creator != "" {
		setDefault(e, AttrCreatorsName, creator)
		setDefault(e, AttrModifiersName, creator)
	}
}

func setDefault(e *storage.Entry, name, value string) {
	if !e.HasAttribute(name) {
		e.SetStringAttribute(name, value)
	}
}

// GenerateUUID returns a random (version 4) UUID string.
func GenerateUUID() string {
	return uuid.NewString()
}

// FormatTimestamp formats a time.Time as an LDAP GeneralizedTime string.
// The format is YYYYMMDDHHmmssZ (e.g., "20260218103000Z").
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("20060102150405Z")
}

// ParseTimestamp parses an LDAP GeneralizedTime string into a time.Time.
// Returns the zero time if parsing fails.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse("20060102150405Z", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
