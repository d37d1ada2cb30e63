package domain

import "testing"

func TestIsCreator(t *testing.T) {
	b := Board{ID: "b1", CreatedBy: "uid-a"}
	if !IsCreator("uid-a", b) {
		t.Fatalf("expected uid-a to be creator")
	}
	if IsCreator("uid-b", b) {
		t.Fatalf("expected uid-b not to be creator")
	}
	if IsCreator("", Board{ID: "b2"}) {
		t.Fatalf("empty user id must never match")
	}
}

func TestIsMember(t *testing.T) {
	b := Board{ID: "b1", CreatedBy: "uid-a"}
	if IsMember(nil, b) {
		t.Fatalf("nil user must not be a member")
	}
	if IsMember(&User{Email: "a@x", Boards: []string{"b2"}}, b) {
		t.Fatalf("user without board must not be a member")
	}
	if !CanViewBoard(&User{Email: "a@x", Boards: []string{"b2", "b1"}}, b) {
		t.Fatalf("user holding board must be able to view it")
	}
}

func TestCanDeleteBoard(t *testing.T) {
	tests := []struct {
		name     string
		hasTasks bool
		members  []User
		ok       bool
		tag      ErrorTag
	}{
		{name: "empty", ok: true},
		{name: "creator only", members: []User{{Email: "a@x"}}, ok: true},
		{name: "tasks", hasTasks: true, members: []User{{Email: "a@x"}}, tag: TagBoardHasTasks},
		{name: "tasks and members", hasTasks: true, members: []User{{Email: "b@x"}}, tag: TagBoardHasTasks},
		{name: "other member", members: []User{{Email: "a@x"}, {Email: "b@x"}}, tag: TagBoardHasMembers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, tag := CanDeleteBoard(tt.hasTasks, tt.members, "a@x")
			if ok != tt.ok || tag != tt.tag {
				t.Fatalf("expected (%v, %q), got (%v, %q)", tt.ok, tt.tag, ok, tag)
			}
		})
	}
}

func TestOutcomeLocation(t *testing.T) {
	if got := Home().Location(); got != "/" {
		t.Fatalf("unexpected home location %q", got)
	}
	if got := boardError("b 1", TagNotCreator).Location(); got != "/board/b%201?error=not_creator" {
		t.Fatalf("unexpected board error location %q", got)
	}
	if toBoard("b1").Failed() {
		t.Fatalf("untagged outcome must not be failed")
	}
}

func TestNormalizeEmails(t *testing.T) {
	got := NormalizeEmails([]string{" B@x ", "", "a@x", "b@X", "  "})
	if len(got) != 2 || got[0] != "b@x" || got[1] != "a@x" {
		t.Fatalf("unexpected normalized emails %v", got)
	}
}
