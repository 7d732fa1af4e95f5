package level

import "testing"

func TestFileNameRendersEachKind(t *testing.T) {
	cases := []struct {
		kind FileKind
		want string
	}{
		{KindPrimary, "Ckpt3-Rank1.fti"},
		{KindPartnerCopy, "Ckpt3-Pcof1.fti"},
		{KindParity, "Ckpt3-RSed1.fti"},
	}
	for _, c := range cases {
		if got := FileName(3, 1, c.kind); got != c.want {
			t.Errorf("FileName(3, 1, %v) = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestParseFileNameRoundTripsEachKind(t *testing.T) {
	cases := []struct {
		name string
		want Candidate
	}{
		{"Ckpt3-Rank1.fti", Candidate{CkptID: 3, Target: 1, Kind: KindPrimary}},
		{"Ckpt3-Pcof1.fti", Candidate{CkptID: 3, Target: 1, Kind: KindPartnerCopy}},
		{"Ckpt3-RSed1.fti", Candidate{CkptID: 3, Target: 1, Kind: KindParity}},
	}
	for _, c := range cases {
		got, ok := parseFileName(c.name)
		if !ok {
			t.Errorf("parseFileName(%q) failed to parse", c.name)
			continue
		}
		if got != c.want {
			t.Errorf("parseFileName(%q) = %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestParseFileNameRejectsUnrelatedNames(t *testing.T) {
	for _, name := range []string{"readme.txt", "Ckpt-Rank1.fti", "Checkpoint3-Rank1.fti"} {
		if _, ok := parseFileName(name); ok {
			t.Errorf("parseFileName(%q) unexpectedly succeeded", name)
		}
	}
}

func TestFileKindString(t *testing.T) {
	cases := map[FileKind]string{KindPrimary: "primary", KindPartnerCopy: "partner-copy", KindParity: "parity"}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("FileKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestReasonCodeErr(t *testing.T) {
	if reasonOK.err() != nil {
		t.Error("reasonOK.err() should be nil")
	}
	if reasonMissing.err() != errMissingFile {
		t.Error("reasonMissing.err() should be errMissingFile")
	}
}
