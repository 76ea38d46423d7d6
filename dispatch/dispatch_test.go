package dispatch

import (
	"strings"
	"testing"

	"github.com/CESNET/rousette-go/schema"
)

func TestAllowForDataResource(t *testing.T) {
	got := Allow(schema.KindContainer, false)
	want := "DELETE, GET, HEAD, OPTIONS, POST, PUT, PATCH"
	if strings.Join(got, ", ") != want {
		t.Fatalf("got %q want %q", strings.Join(got, ", "), want)
	}
}

func TestAllowForDatastoreRootExcludesDelete(t *testing.T) {
	got := Allow(schema.KindContainer, true)
	for _, m := range got {
		if m == "DELETE" {
			t.Fatal("datastore root must not allow DELETE")
		}
	}
}

func TestAllowForRpcNode(t *testing.T) {
	got := Allow(schema.KindRpcOrAction, false)
	want := "OPTIONS, POST"
	if strings.Join(got, ", ") != want {
		t.Fatalf("got %q want %q", strings.Join(got, ", "), want)
	}
}
