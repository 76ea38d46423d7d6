package apierrors

import (
	"encoding/json"
	"encoding/xml"
	"net/http"
)

// entry is one ietf-restconf:errors.error[] member, RFC 8040 §7.
type entry struct {
	Type    string `json:"error-type" xml:"error-type"`
	Tag     string `json:"error-tag" xml:"error-tag"`
	Path    string `json:"error-path,omitempty" xml:"error-path,omitempty"`
	Message string `json:"error-message,omitempty" xml:"error-message,omitempty"`
}

type jsonDocument struct {
	Errors struct {
		Error []entry `json:"error"`
	} `json:"ietf-restconf:errors"`
}

type xmlDocument struct {
	XMLName xml.Name `xml:"errors"`
	Xmlns   string   `xml:"xmlns,attr"`
	Error   []entry  `xml:"error"`
}

const errorsXmlns = "urn:ietf:params:xml:ns:yang:ietf-restconf"

func toEntry(e *Error) entry {
	return entry{Type: string(e.Type), Tag: string(e.Tag), Path: e.Path, Message: e.Message}
}

// WriteJSON emits a single-error ietf-restconf:errors document as JSON.
func WriteJSON(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/yang-data+json")
	w.WriteHeader(e.Status)
	var doc jsonDocument
	doc.Errors.Error = []entry{toEntry(e)}
	_ = json.NewEncoder(w).Encode(doc)
}

// WriteXML emits a single-error ietf-restconf:errors document as XML.
func WriteXML(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/yang-data+xml")
	w.WriteHeader(e.Status)
	doc := xmlDocument{Xmlns: errorsXmlns, Error: []entry{toEntry(e)}}
	_ = xml.NewEncoder(w).Encode(doc)
}

// Encoding picks which document form to write.
type Encoding int

const (
	JSON Encoding = iota
	XML
)

// Write emits the error document in the negotiated response format, per
// spec §4.4 "Error responses are encoded using the negotiated response
// format."
func Write(w http.ResponseWriter, enc Encoding, e *Error) {
	if enc == XML {
		WriteXML(w, e)
		return
	}
	WriteJSON(w, e)
}
