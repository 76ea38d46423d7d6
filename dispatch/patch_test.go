package dispatch

import (
	"strings"
	"testing"

	"github.com/CESNET/rousette-go/codec"
)

func TestParseYangPatchRejectsEmptyEditList(t *testing.T) {
	body := `{"ietf-yang-patch:yang-patch":{"patch-id":"p","edit":[]}}`
	_, err := ParseYangPatch(codec.JSON, strings.NewReader(body))
	if err == nil {
		t.Fatal("expected error for empty edit list")
	}
}

func TestParseYangPatchRejectsUnknownOperation(t *testing.T) {
	body := `{"ietf-yang-patch:yang-patch":{"patch-id":"p","edit":[
		{"edit-id":"e1","operation":"bogus","target":"/x"}
	]}}`
	_, err := ParseYangPatch(codec.JSON, strings.NewReader(body))
	if err == nil {
		t.Fatal("expected error for unrecognized operation")
	}
}

func TestParseYangPatchOrdersEditsAsGiven(t *testing.T) {
	body := `{"ietf-yang-patch:yang-patch":{"patch-id":"p","edit":[
		{"edit-id":"e1","operation":"create","target":"/a","value":{"a":1}},
		{"edit-id":"e2","operation":"remove","target":"/b"}
	]}}`
	edits, err := ParseYangPatch(codec.JSON, strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 2 || edits[0].Operation != OpCreate || edits[1].Operation != OpRemove {
		t.Fatalf("unexpected edits: %+v", edits)
	}
}
