package uri

import "testing"

func TestParseDataPath(t *testing.T) {
	rp, q, err := ParseURI("/restconf/data/example:top/list=a,b/leaf", "depth=3&content=config")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rp.Root != RootData {
		t.Fatalf("expected RootData, got %v", rp.Root)
	}
	if len(rp.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(rp.Segments))
	}
	if rp.Segments[0].Identifier.Module != "example" || rp.Segments[0].Identifier.Ident != "top" {
		t.Fatalf("unexpected first segment %+v", rp.Segments[0])
	}
	if len(rp.Segments[1].Keys) != 2 || rp.Segments[1].Keys[0] != "a" || rp.Segments[1].Keys[1] != "b" {
		t.Fatalf("unexpected keys %+v", rp.Segments[1].Keys)
	}
	if q.Depth != 3 || q.Content != ContentConfig {
		t.Fatalf("unexpected query params %+v", q)
	}
}

func TestFirstSegmentMustBeQualified(t *testing.T) {
	_, _, err := ParseURI("/restconf/data/top", "")
	if err == nil {
		t.Fatal("expected error for unqualified first segment")
	}
}

func TestDatastoreSelector(t *testing.T) {
	rp, _, err := ParseURI("/restconf/ds/ietf-datastores:operational/example:top", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rp.Datastore != "operational" || rp.DatastoreModule != "ietf-datastores" {
		t.Fatalf("unexpected datastore %+v", rp)
	}
	if rp.EffectiveDatastore(false) != "operational" {
		t.Fatal("expected explicit datastore to win")
	}
}

func TestDefaultDatastore(t *testing.T) {
	rp, _, err := ParseURI("/restconf/data/example:top", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rp.EffectiveDatastore(false) != DatastoreOperational {
		t.Fatal("expected operational default for reads")
	}
	if rp.EffectiveDatastore(true) != DatastoreRunning {
		t.Fatal("expected running default for writes")
	}
}

func TestKeyWithPercentEncodedComma(t *testing.T) {
	rp, _, err := ParseURI("/restconf/data/example:list=a%2Cb,c", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rp.Segments[0].Keys) != 2 {
		t.Fatalf("expected 2 keys (comma preserved in first), got %+v", rp.Segments[0].Keys)
	}
	if rp.Segments[0].Keys[0] != "a,b" {
		t.Fatalf("expected decoded comma inside key, got %q", rp.Segments[0].Keys[0])
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"/restconf/data/example:top",
		"/restconf/data/example:top/list=a,b/leaf",
		"/restconf/operations/example:test-rpc",
		"/restconf/ds/ietf-datastores:candidate/example:top",
		"/restconf/yang-library-version",
	}
	for _, c := range cases {
		rp, _, err := ParseURI(c, "")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c, err)
		}
		again := rp.String()
		if again != c {
			t.Fatalf("round trip mismatch: %s != %s", again, c)
		}
		rp2, _, err := ParseURI(again, "")
		if err != nil {
			t.Fatalf("%s: reparse error: %v", again, err)
		}
		if rp2.String() != rp.String() {
			t.Fatalf("reparse mismatch: %s != %s", rp2.String(), rp.String())
		}
	}
}

func TestRoundTripWithReservedKey(t *testing.T) {
	rp := &ResourcePath{
		Root: RootData,
		Segments: []PathSegment{
			{Identifier: ApiIdentifier{Module: "example", Ident: "list"}, Keys: []string{"a,b", "c=d"}},
		},
	}
	s := rp.String()
	rp2, _, err := ParseURI(s, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rp2.Segments[0].Keys[0] != "a,b" || rp2.Segments[0].Keys[1] != "c=d" {
		t.Fatalf("unexpected keys after round trip: %+v", rp2.Segments[0].Keys)
	}
}

func TestYangSchemaPath(t *testing.T) {
	mod, rev, err := ParseYangSchemaPath("/yang/example-module@2020-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mod != "example-module" || rev != "2020-01-01" {
		t.Fatalf("unexpected module/revision: %s %s", mod, rev)
	}
	if _, _, err := ParseYangSchemaPath("/yang/example-module@bad-revision"); err == nil {
		t.Fatal("expected error for bad revision")
	}
}

func TestQueryParamDuplicateRejected(t *testing.T) {
	_, _, err := ParseURI("/restconf/data/example:top", "depth=1&depth=2")
	if err == nil {
		t.Fatal("expected error for duplicate query parameter")
	}
}

func TestInsertRequiresPoint(t *testing.T) {
	_, _, err := ParseURI("/restconf/data/example:top", "insert=before")
	if err == nil {
		t.Fatal("expected error for insert=before without point")
	}
}
