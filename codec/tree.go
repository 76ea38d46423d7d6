package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/clbanning/mxj/v2"
	"github.com/freeconf/yang/meta"
	"github.com/freeconf/yang/node"
	"github.com/freeconf/yang/nodeutil"

	"github.com/CESNET/rousette-go/apierrors"
)

// QualifyNamespace mirrors ComplianceOptions.QualifyNamespaceDisabled from
// the teacher's browser_handler.go: when true (the RFC 8040 default), every
// emitted name is module-qualified unless it shares the parent's module.
type WriterOptions struct {
	QualifyNamespace bool
}

// Writer returns a node.Node that serializes whatever is inserted into it,
// in the given encoding, to out.
func Writer(enc Encoding, out io.Writer, opts WriterOptions) node.Node {
	if enc == XML {
		wtr := &nodeutil.XMLWtr{Out: out}
		return wtr.Node()
	}
	wtr := &nodeutil.JSONWtr{Out: out, QualifyNamespace: opts.QualifyNamespace}
	return wtr.Node()
}

// ReadBody parses a write-method (PUT/POST/PATCH) request body of the given
// encoding into a node.Node ready to be inserted into a YANG-validated tree.
// XML is decoded via mxj into the same map[string]interface{} shape
// nodeutil.ReadJSONValues accepts for JSON, so both encodings share one
// downstream path. d is the terminal schema definition the body is being
// written to; the payload's top-level object is checked against spec §4.4's
// cross-cutting ietf-netconf:operation rejection before conversion.
func ReadBody(enc Encoding, body io.Reader, d meta.Definition) (node.Node, error) {
	raw, err := readBodyMap(enc, body)
	if err != nil {
		return nil, err
	}
	if err := RejectNetconfOperationAttr(raw, d); err != nil {
		return nil, err
	}
	return nodeutil.ReadJSONValues(raw), nil
}

// readBodyMap decodes a request body into the map[string]interface{} shape
// nodeutil.ReadJSONValues accepts, for either encoding.
func readBodyMap(enc Encoding, body io.Reader) (map[string]interface{}, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, apierrors.InvalidValue("could not read request body: "+err.Error(), "")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apierrors.MalformedMessage("Empty data tree received")
	}
	if enc == XML {
		m, err := mxj.NewMapXml(raw)
		if err != nil {
			return nil, apierrors.InvalidValue("malformed XML body: "+err.Error(), "")
		}
		removeAttributes(map[string]interface{}(m))
		return map[string]interface{}(m), nil
	}
	var vals map[string]interface{}
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil, apierrors.InvalidValue("malformed JSON body: "+err.Error(), "")
	}
	return vals, nil
}

// ReadWrappedInput decodes an RPC/action input body, unwrapping the IETF
// "<module>:input" envelope (RFC 8040 §3.6.1), mirroring
// browser_handler.go's readInput. key is "<module>:input" or
// "<module>:output".
func ReadWrappedInput(enc Encoding, body io.Reader, key string) (node.Node, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, apierrors.InvalidValue("could not read request body: "+err.Error(), "")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apierrors.MalformedMessage("Empty data tree received")
	}
	var vals map[string]interface{}
	if enc == XML {
		m, err := mxj.NewMapXml(raw)
		if err != nil {
			return nil, apierrors.InvalidValue("malformed XML body: "+err.Error(), "")
		}
		removeAttributes(map[string]interface{}(m))
		root, err := m.Root()
		if err != nil {
			return nil, apierrors.InvalidValue("malformed XML body: "+err.Error(), "")
		}
		vals = map[string]interface{}{key: map[string]interface{}(m)[root]}
	} else {
		if err := json.Unmarshal(raw, &vals); err != nil {
			return nil, apierrors.InvalidValue("malformed JSON body: "+err.Error(), "")
		}
	}
	payload, found := vals[key].(map[string]interface{})
	if !found {
		return nil, apierrors.InvalidValue(fmt.Sprintf("'%s' missing in input wrapper", key), "")
	}
	return nodeutil.ReadJSONValues(payload), nil
}

// WriteWrapped writes an RPC output wrapped in the IETF "<module>:output"
// envelope for JSON; XML does not wrap (RFC 8040 §3.6.2's xs:any form),
// matching browser_handler.go's sendActionOutput.
func WriteWrapped(enc Encoding, out io.Writer, module string, opts WriterOptions, write func(node.Node) error) error {
	if enc == XML {
		return write(Writer(XML, out, opts))
	}
	if _, err := fmt.Fprintf(out, `{"%s:output":`, module); err != nil {
		return err
	}
	if err := write(Writer(JSON, out, opts)); err != nil {
		return err
	}
	_, err := fmt.Fprint(out, "}")
	return err
}

// removeAttributes strips mxj's XML-attribute keys (dashed per its
// convention) before the map is handed to nodeutil, mirroring
// browser_handler.go's removeAttributesFromXmlMap.
func removeAttributes(m map[string]interface{}) {
	val := reflect.ValueOf(m)
	for _, e := range val.MapKeys() {
		v := val.MapIndex(e)
		if strings.HasPrefix(e.String(), "-") {
			delete(m, e.String())
			continue
		}
		if t, ok := v.Interface().(map[string]interface{}); ok {
			removeAttributes(t)
		}
	}
}

// RejectNetconfOperationAttr rejects the ietf-netconf:operation metadata
// attribute some clients attach to payload nodes, per spec §4.4 cross-
// cutting rule. d is the terminal schema definition being written to, used
// only for the error path in the returned error.
func RejectNetconfOperationAttr(raw map[string]interface{}, d meta.Definition) error {
	if _, found := raw["@ietf-netconf:operation"]; found {
		path := "/"
		if d != nil {
			path += d.Ident()
		}
		return apierrors.InvalidValue("ietf-netconf:operation metadata is not supported", path)
	}
	return nil
}
