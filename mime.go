package restconf

// MimeType is a RESTCONF/legacy media type constant, mirroring the
// teacher's own MimeType string constants used throughout
// browser_handler.go and client_node.go.
type MimeType string

const (
	YangDataJsonMimeType1 MimeType = "application/yang-data+json"
	YangDataJsonMimeType2 MimeType = "application/yang.data+json"
	YangDataXmlMimeType1  MimeType = "application/yang-data+xml"
	YangDataXmlMimeType2  MimeType = "application/yang.data+xml"
	YangPatchJsonMimeType MimeType = "application/yang-patch+json"
	YangPatchXmlMimeType  MimeType = "application/yang-patch+xml"
	PlainJsonMimeType     MimeType = "application/json"
	PlainXmlMimeType      MimeType = "application/xml"
	TextStreamMimeType    MimeType = "text/event-stream"
	YangMimeType          MimeType = "application/yang"
)

// EventTimeFormat is the RFC 3339-with-fractional-seconds layout used for
// the eventTime leaf on every notification envelope (RFC 5277 §4).
const EventTimeFormat = "2006-01-02T15:04:05.000Z07:00"
