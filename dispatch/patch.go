package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/clbanning/mxj/v2"
	"github.com/freeconf/yang/nodeutil"

	"github.com/CESNET/rousette-go/apierrors"
	"github.com/CESNET/rousette-go/codec"
)

// Edit is one member of a yang-patch edit list, RFC 8072 §2.5.
type Edit struct {
	ID        string
	Operation EditOp
	Target    string
	Value     map[string]interface{}
}

// EditOp is the RFC 8072 edit operation vocabulary.
type EditOp string

const (
	OpCreate  EditOp = "create"
	OpMerge   EditOp = "merge"
	OpReplace EditOp = "replace"
	OpRemove  EditOp = "remove"
	OpDelete  EditOp = "delete"
)

type yangPatchDoc struct {
	Patch struct {
		PatchID string `json:"patch-id"`
		Edit    []struct {
			EditID    string                 `json:"edit-id"`
			Operation string                 `json:"operation"`
			Target    string                 `json:"target"`
			Value     map[string]interface{} `json:"value"`
		} `json:"edit"`
	} `json:"ietf-yang-patch:yang-patch"`
}

// ParseYangPatch decodes an application/yang-patch+json body into an
// ordered Edit list. XML yang-patch bodies follow the same shape via mxj,
// spec §4.4's PATCH row names JSON and XML as equally valid; this
// implementation accepts the JSON form directly and the XML form via the
// same map-shaped decoder codec.ReadBody already uses for XML.
func ParseYangPatch(enc codec.Encoding, body io.Reader) ([]Edit, error) {
	raw, values, err := decodePatchEnvelope(enc, body)
	if err != nil {
		return nil, err
	}
	_ = raw

	edits := make([]Edit, 0, len(values))
	for _, e := range values {
		op := EditOp(e.Operation)
		switch op {
		case OpCreate, OpMerge, OpReplace, OpRemove, OpDelete:
		default:
			return nil, apierrors.InvalidValue("unrecognized yang-patch operation '"+e.Operation+"'", e.Target)
		}
		edits = append(edits, Edit{ID: e.EditID, Operation: op, Target: e.Target, Value: e.Value})
	}
	if len(edits) == 0 {
		return nil, apierrors.InvalidValue("yang-patch edit list must not be empty", "")
	}
	return edits, nil
}

// ApplyYangPatch applies edits left-to-right against the resolved base
// resource; each edit's Target is relative to r.Resolved.XPath. Each edit is
// a separate Session.Select and write: there is no enclosing transaction,
// and when an edit fails the edits before it stay applied.
func (d *Dispatcher) ApplyYangPatch(ctx context.Context, w http.ResponseWriter, r *Request, edits []Edit) error {
	for _, e := range edits {
		targetPath := r.Resolved.XPath + e.Target
		sel, err := d.Session.Select(ctx, r.Resolved.Datastore, targetPath)
		if err != nil {
			return apierrors.Wrap(err)
		}

		switch e.Operation {
		case OpDelete, OpRemove:
			if sel.IsNil() {
				if e.Operation == OpDelete {
					return apierrors.DataMissing(targetPath)
				}
				continue // remove of an absent node is a no-op
			}
			if err := sel.Delete(); err != nil {
				return apierrors.Wrap(err)
			}
		case OpCreate:
			if !sel.IsNil() {
				return apierrors.ResourceExists("Data already exists for target '" + e.Target + "'")
			}
			in := nodeutil.ReadJSONValues(e.Value)
			if err := sel.InsertFrom(in).LastErr; err != nil {
				return apierrors.Wrap(err)
			}
		case OpMerge, OpReplace:
			in := nodeutil.ReadJSONValues(e.Value)
			if err := sel.UpsertFrom(in).LastErr; err != nil {
				return apierrors.Wrap(err)
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type patchEdit struct {
	EditID    string
	Operation string
	Target    string
	Value     map[string]interface{}
}

func decodePatchEnvelope(enc codec.Encoding, body io.Reader) ([]byte, []patchEdit, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, apierrors.InvalidValue("could not read request body: "+err.Error(), "")
	}
	var out []patchEdit
	if enc == codec.XML {
		edits, err := decodeXMLPatch(raw)
		if err != nil {
			return nil, nil, apierrors.MalformedMessage("malformed yang-patch document: " + err.Error())
		}
		out = edits
	} else {
		var doc yangPatchDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, nil, apierrors.MalformedMessage("malformed yang-patch document: " + err.Error())
		}
		out = make([]patchEdit, 0, len(doc.Patch.Edit))
		for _, e := range doc.Patch.Edit {
			out = append(out, patchEdit{EditID: e.EditID, Operation: e.Operation, Target: e.Target, Value: e.Value})
		}
	}
	return raw, out, nil
}

// decodeXMLPatch converts a yang-patch XML body (RFC 8072 §3.2) to the same
// patchEdit shape as the JSON form, via mxj, mirroring how codec.ReadBody
// uses mxj to fold XML request bodies into nodeutil's map shape.
func decodeXMLPatch(raw []byte) ([]patchEdit, error) {
	m, err := mxj.NewMapXml(raw)
	if err != nil {
		return nil, err
	}
	top, ok := map[string]interface{}(m)["yang-patch"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing <yang-patch> root element")
	}
	rawEdits := top["edit"]
	var editList []interface{}
	switch v := rawEdits.(type) {
	case []interface{}:
		editList = v
	case map[string]interface{}:
		editList = []interface{}{v}
	default:
		return nil, fmt.Errorf("missing <edit> elements")
	}
	out := make([]patchEdit, 0, len(editList))
	for _, raw := range editList {
		e, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		value, _ := e["value"].(map[string]interface{})
		out = append(out, patchEdit{
			EditID:    fmt.Sprint(e["edit-id"]),
			Operation: fmt.Sprint(e["operation"]),
			Target:    fmt.Sprint(e["target"]),
			Value:     value,
		})
	}
	return out, nil
}
