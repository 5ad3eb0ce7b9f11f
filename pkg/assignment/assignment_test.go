package assignment

import (
	"encoding/json"
	"testing"
)

func TestSourceSetLegacySingleString(t *testing.T) {
	// Older record files stored source as one string, not an array.
	var s SourceSet
	if err := json.Unmarshal([]byte(`"email"`), &s); err != nil {
		t.Fatalf("legacy unmarshal: %v", err)
	}
	if !s.Has("email") || len(s) != 1 {
		t.Fatalf("unexpected set: %v", s)
	}

	s.Add("scraped")
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["email","scraped"]` {
		t.Fatalf("expected sorted array, got %s", data)
	}
}

func TestIdentityKeyUsesCourseCode(t *testing.T) {
	a := &Assignment{TitleNormalized: "1 user story", CourseCode: "HCI", Course: "something else"}
	b := &Assignment{TitleNormalized: "1 user story", CourseCode: "hci"}
	if a.IdentityKey() != b.IdentityKey() {
		t.Fatalf("course code comparison must be case-insensitive: %q vs %q", a.IdentityKey(), b.IdentityKey())
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	a := &Assignment{
		Sources:   NewSourceSet("email"),
		RemoteIDs: map[string]string{"todoist": "1"},
	}
	c := a.Clone()
	c.Sources.Add("scraped")
	c.SetRemoteID("notion", "2")
	if a.Sources.Has("scraped") {
		t.Fatal("clone shares the sources map")
	}
	if a.RemoteID("notion") != "" {
		t.Fatal("clone shares the remote id map")
	}
}
